package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mcexporter/internal/logx"
)

const shutdownTimeout = 10 * time.Second

const landingPage = `<html>
<head><title>Minecraft Exporter</title></head>
<body>
<h1>Minecraft Exporter</h1>
<p><a href="%s">Metrics</a></p>
</body>
</html>
`

type Server struct {
	http *http.Server
	log  *logx.Logger
}

// NewRegistry returns a registry holding the given collectors next to the
// standard Go runtime and process collectors.
func NewRegistry(cs ...prometheus.Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	all := append([]prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}, cs...)
	for _, c := range all {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return reg, nil
}

// NewRouter mounts the metrics handler for gatherer at metricsPath.
func NewRouter(gatherer prometheus.Gatherer, metricsPath string, logger *logx.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:      promLogger{log: logger},
		ErrorHandling: promhttp.ContinueOnError,
	}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, landingPage, metricsPath)
	})

	return r
}

func New(addr string, handler http.Handler, logger *logx.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger.With("component", "http"),
	}
}

// Run serves until ctx is cancelled and then drains open requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// promLogger adapts logx to promhttp's error logger.
type promLogger struct {
	log *logx.Logger
}

func (p promLogger) Println(v ...any) {
	p.log.Error("metrics handler error", "err", fmt.Sprint(v...))
}
