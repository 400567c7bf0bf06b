package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oplego/lexharvest/internal/scheduler"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type taskLister interface {
	Tasks() []scheduler.TaskInfo
}

// opsRouter serves the daemon's operational endpoints
func opsRouter(metricsHandler http.Handler, db pinger, tasks taskLister) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", metricsHandler)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/tasks", func(w http.ResponseWriter, req *http.Request) {
		writeStatus(w, http.StatusOK, tasks.Tasks())
	})

	return r
}

func writeStatus(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
