package http

import (
	"context"
	"net/http"
	"time"
)

// Pinger is anything whose liveness gates readiness: the database pool, the
// Redis lock client.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingerFunc adapts a plain func to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
}

// ReadyzHandler reports 503 naming the first dependency that fails to answer.
func ReadyzHandler(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, p := range deps {
			if err := p.PingContext(ctx); err != nil {
				respondError(w, http.StatusServiceUnavailable, "NOT_READY", name+" unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
