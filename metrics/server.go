package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// StartHTTP serves the Prometheus collectors at /metrics on addr, mirroring
// ampio-server's StartHTTP. Returns the *http.Server so the caller can
// Shutdown it alongside the session.
func StartHTTP(addr string, logger *zap.SugaredLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("metrics http server failed", "error", err)
		}
	}()
	return srv
}

// Stop gracefully shuts srv down, used on session teardown.
func Stop(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}
