package worker

import (
	"context"
	"sync"
	"time"

	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/logging"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/metrics"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/queue"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

var (
	ErrQueueFull  = errors.New("job queue full")
	ErrPoolClosed = errors.New("worker pool stopped")
)

// Handler processes one separation event.
type Handler func(ctx context.Context, evt queue.SeparationEvent) error

type job struct {
	evt     queue.SeparationEvent
	attempt int
}

// Pool is a bounded worker pool that executes jobs concurrently with retry & backoff.
type Pool struct {
	concurrency    int
	jobs           chan job
	wg             sync.WaitGroup
	handler        Handler
	retryBaseDelay time.Duration
	maxRetries     int
	jobTimeout     time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a worker pool with bounded concurrency and internal queue.
func NewPool(concurrency, queueSize int, handler Handler) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		concurrency:    concurrency,
		jobs:           make(chan job, queueSize),
		handler:        handler,
		retryBaseDelay: 2 * time.Second,
		maxRetries:     3,
		jobTimeout:     5 * time.Minute,
	}
}

// WithRetry sets the retry budget and the first backoff delay.
func (p *Pool) WithRetry(maxRetries int, baseDelay time.Duration) *Pool {
	p.maxRetries = maxRetries
	p.retryBaseDelay = baseDelay
	return p
}

// WithJobTimeout bounds each handler call.
func (p *Pool) WithJobTimeout(d time.Duration) *Pool {
	p.jobTimeout = d
	return p
}

// Start launches all worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	logging.Logger.Info("starting worker pool", zap.Int("concurrency", p.concurrency))
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, i)
	}
}

// Stop gracefully stops all workers and waits until they finish. Pending
// retries are dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	logging.Logger.Info("stopping worker pool")
	p.wg.Wait()
}

// Enqueue pushes an event into the queue (non-blocking; returns error if full).
func (p *Pool) Enqueue(evt queue.SeparationEvent) error {
	return p.enqueue(job{evt: evt})
}

func (p *Pool) enqueue(j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// workerLoop consumes jobs and executes them with retry and backoff.
func (p *Pool) workerLoop(ctx context.Context, id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		if ctx.Err() != nil {
			metrics.AnalysisJobs.WithLabelValues("dropped").Inc()
			continue
		}

		metrics.AnalysisJobsInFlight.Inc()
		start := time.Now()
		logging.Logger.Info("processing job",
			zap.String("event", j.evt.ID), zap.Int("worker", id), zap.Int("attempt", j.attempt+1))

		jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
		err := p.handler(jobCtx, j.evt)
		cancel()

		metrics.AnalysisJobDuration.Observe(time.Since(start).Seconds())
		metrics.AnalysisJobsInFlight.Dec()

		if err == nil {
			metrics.AnalysisJobs.WithLabelValues("done").Inc()
			logging.Logger.Info("job completed", zap.String("event", j.evt.ID), zap.Duration("took", time.Since(start)))
			continue
		}

		j.attempt++
		if j.attempt > p.maxRetries {
			metrics.AnalysisJobs.WithLabelValues("failed").Inc()
			logging.Logger.Error("job failed permanently",
				zap.String("event", j.evt.ID), zap.Int("retries", p.maxRetries), zap.Error(err))
			continue
		}

		// exponential backoff
		delay := p.retryBaseDelay * time.Duration(1<<uint(j.attempt-1))
		metrics.AnalysisJobs.WithLabelValues("retry").Inc()
		logging.Logger.Warn("job failed, will retry",
			zap.String("event", j.evt.ID), zap.Int("retry", j.attempt), zap.Duration("backoff", delay), zap.Error(err))

		time.AfterFunc(delay, func() {
			if err := p.enqueue(j); err != nil {
				metrics.AnalysisJobs.WithLabelValues("dropped").Inc()
				logging.Logger.Warn("retry dropped", zap.String("event", j.evt.ID), zap.Error(err))
			}
		})
	}
}
