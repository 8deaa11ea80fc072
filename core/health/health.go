// Package health serves liveness and readiness probes over HTTP.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/bookbot/core/logger"
)

// Check probes one dependency.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type result struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// probeTimeout bounds a single readiness probe.
const probeTimeout = 2 * time.Second

// Router returns the probe routes: /healthz always answers 200,
// /readyz answers 503 when any check fails.
func Router(checks ...Check) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		results := make([]result, 0, len(checks))
		ready := true
		for _, c := range checks {
			ctx, cancel := context.WithTimeout(req.Context(), probeTimeout)
			err := c.Probe(ctx)
			cancel()
			res := result{Name: c.Name, OK: err == nil}
			if err != nil {
				ready = false
				res.Error = err.Error()
				logger.Warn(req.Context(), "health", "probe.fail",
					slog.String("op", c.Name),
					slog.String("err", err.Error()),
				)
			}
			results = append(results, res)
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{"status": status, "checks": results})
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Serve runs the probe server on addr until ctx is done.
func Serve(ctx context.Context, addr string, checks ...Check) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Router(checks...),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info(ctx, "health", "listen", slog.String("listen", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
