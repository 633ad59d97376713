// internal/common/httpapi/server.go
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

// NewRouter returns a router carrying the shared middleware chain plus /health and /metrics.
func NewRouter(service string, log logger.Logger, errs *apperrors.ErrorHandler, tracer trace.Tracer) *mux.Router {
	r := mux.NewRouter()
	r.Use(
		RequestID(log),
		Recover(errs),
		Tracing(tracer),
		Metrics(service),
		AccessLog(log),
	)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		OK(w, "ok", map[string]interface{}{
			"service":   service,
			"timestamp": time.Now().UTC(),
		})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		errs.HandleHTTPError(w, req, apperrors.NewResourceNotFoundError("Route", req.Method+" "+req.URL.Path))
	})

	return r
}

// Serve runs the handler until ctx is cancelled, then drains for up to 10s.
func Serve(ctx context.Context, addr string, h http.Handler, readTimeout, writeTimeout time.Duration, log logger.Logger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("http server shutting down", map[string]interface{}{"addr": addr})
	return srv.Shutdown(shutdownCtx)
}
