package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/api"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/config"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/executor"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/logging"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/metrics"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/queue"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/separation"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/storage"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// APIServerConfig configures an in-process separation server.
type APIServerConfig struct {
	config.Server

	// Executor runs the separator binary; nil means the host OS.
	Executor executor.Executor
}

// Server is a running separation service.
type Server struct {
	HTTP    *http.Server
	addr    string
	healthy atomic.Bool
	done    chan struct{}
}

// Addr is the bound listen address, useful when configured with port 0.
func (s *Server) Addr() string { return s.addr }

// Wait blocks until the server has shut down and released its resources.
func (s *Server) Wait() { <-s.done }

// RunAPIServer starts the API server in-process. It shuts down when ctx is cancelled.
func RunAPIServer(ctx context.Context, cfg APIServerConfig) (*Server, error) {
	if err := logging.Init(cfg.DevLogging); err != nil {
		return nil, err
	}
	logging.Logger.Info("server.RunAPIServer starting", zap.String("addr", cfg.Addr))

	metrics.Register()

	staging := storage.NewStaging(cfg.StagingRoot)
	if err := staging.EnsureDirs(); err != nil {
		logging.Logger.Error("EnsureDirs failed", zap.Error(err))
		return nil, err
	}

	// optional nats client
	var nClient *queue.NatsClient
	if cfg.NatsURL != "" {
		nc, err := queue.NewNatsClient(cfg.NatsURL, cfg.NatsSubject)
		if err != nil {
			logging.Logger.Error("NewNatsClient failed", zap.Error(err))
			return nil, err
		}
		nClient = nc
	}

	runner := cfg.Executor
	if runner == nil {
		runner = executor.OSExecutor{}
	}

	apiSvc := &api.API{
		Storage:        staging,
		Separator:      separation.NewSpleeter(runner, cfg.SpleeterBin, cfg.SpleeterTimeout, logging.Logger).WithWorkDir(staging.Root),
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	if nClient != nil {
		apiSvc.Events = nClient
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		if nClient != nil {
			nClient.Close()
		}
		return nil, errors.Wrapf(err, "listen on %s", cfg.Addr)
	}

	s := &Server{addr: ln.Addr().String(), done: make(chan struct{})}
	s.healthy.Store(true)

	// separation runs inside the request, so the write timeout has to cover it
	writeTimeout := 60 * time.Second
	if cfg.SpleeterTimeout > 0 {
		writeTimeout += cfg.SpleeterTimeout
	}
	s.HTTP = &http.Server{
		Handler:      otelhttp.NewHandler(NewRouter(apiSvc, &s.healthy), "stems-separator"),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// graceful shutdown when ctx canceled: shutdown server, close nats
	go func() {
		defer close(s.done)
		<-ctx.Done()
		logging.Logger.Info("server.RunAPIServer shutdown requested")
		s.healthy.Store(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.HTTP.Shutdown(shutdownCtx); err != nil {
			logging.Logger.Error("HTTP server Shutdown", zap.Error(err))
		}
		if nClient != nil {
			nClient.Close()
		}
		_ = logging.Logger.Sync()
	}()

	go func() {
		if err := s.HTTP.Serve(ln); err != nil && err != http.ErrServerClosed {
			logging.Logger.Error("Serve error", zap.Error(err))
		}
	}()

	logging.Logger.Info("api server listening", zap.String("addr", s.addr))
	return s, nil
}

// NewRouter wires the separation API, probes and metrics onto a chi router.
func NewRouter(apiSvc *api.API, healthy *atomic.Bool) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(healthy))
	apiSvc.RegisterRoutes(r)

	// metrics endpoint
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		metrics.HTTPRequests.WithLabelValues(path, r.Method, strconv.Itoa(status)).Inc()
		logging.Logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func readyHandler(healthy *atomic.Bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if healthy == nil || healthy.Load() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ready":true}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"ready":false}`))
	}
}
