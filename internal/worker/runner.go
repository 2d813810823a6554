package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/config"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/logging"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/metrics"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/queue"
	"go.uber.org/zap"

	"github.com/nats-io/nats.go"
)

// RunWorker starts a worker pool and subscribes to the separation event subject.
// handler is the function executed for each event (it must respect ctx cancellation).
// Caller should cancel ctx to stop the worker.
func RunWorker(ctx context.Context, cfg config.Worker, handler Handler) (*Pool, error) {
	// init logging (idempotent)
	if err := logging.Init(cfg.DevLogging); err != nil {
		return nil, err
	}

	metrics.Register()

	nc, err := queue.NewNatsClient(cfg.NatsURL, cfg.NatsSubject)
	if err != nil {
		logging.Logger.Error("NewNatsClient failed", zap.Error(err))
		return nil, err
	}

	p := NewPool(cfg.Concurrency, cfg.QueueSize, handler).
		WithRetry(cfg.MaxRetries, 2*time.Second).
		WithJobTimeout(cfg.JobTimeout)
	p.Start(ctx)

	// subscribe to events and push messages into pool
	sub, err := nc.QueueSubscribe(cfg.QueueGroup, func(m *nats.Msg) {
		var evt queue.SeparationEvent
		if err := json.Unmarshal(m.Data, &evt); err != nil {
			logging.Logger.Error("bad separation event", zap.Error(err))
			return
		}
		if err := p.Enqueue(evt); err != nil {
			metrics.AnalysisJobs.WithLabelValues("dropped").Inc()
			logging.Logger.Warn("enqueue failed", zap.String("event", evt.ID), zap.Error(err))
		}
	})
	if err != nil {
		// cleanup
		p.Stop()
		nc.Close()
		return nil, err
	}
	logging.Logger.Info("worker subscribed",
		zap.String("subject", nc.Subject()), zap.String("queue", cfg.QueueGroup))

	// cleanup on context cancellation
	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
		p.Stop()
		nc.Close()
		_ = logging.Logger.Sync()
	}()

	return p, nil
}
