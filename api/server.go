// Package api is the host's management surface: status, the activity feed
// (snapshot and live stream), pending interaction resolution, credential
// management, and run submission.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voocel/pilot/activity"
	"github.com/voocel/pilot/hitl"
	"github.com/voocel/pilot/secret"
	"github.com/voocel/pilot/tools"
)

// GuestStatus reports whether a guest agent is attached.
type GuestStatus interface {
	Connected() bool
}

// RunDriver accepts one instruction and drives it to a final answer.
type RunDriver interface {
	Run(ctx context.Context, input string) (string, error)
}

// TodoSource lists the session's todo items for the status snapshot.
type TodoSource interface {
	Items() []tools.Todo
}

// Options wires the server's dependencies. Nil fields disable the routes
// that need them.
type Options struct {
	Center   *hitl.Center
	Activity *activity.Log
	Secrets  *secret.Store
	Guest    GuestStatus
	Runner   RunDriver
	Todos    TodoSource

	// APIKey, when set, requires `Authorization: Bearer <key>` on every
	// /api route.
	APIKey string

	// Metrics, when set, mounts promhttp for the registry at /metrics.
	Metrics *prometheus.Registry

	Version string
}

type server struct {
	opts    Options
	running atomic.Bool
}

// New constructs the HTTP handler for the host daemon.
func New(opts Options) http.Handler {
	s := &server{opts: opts}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	if opts.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(ar chi.Router) {
		if opts.APIKey != "" {
			ar.Use(bearerAuth(opts.APIKey))
		}
		ar.Get("/status", s.handleStatus)
		ar.Get("/activity", s.handleActivity)
		ar.Get("/events", s.handleEvents)

		ar.Get("/interactions/pending", s.handlePending)
		ar.Post("/questions/{id}/answer", s.handleAnswer)
		ar.Post("/permissions/{id}/decide", s.handleDecide)

		ar.Get("/credentials", s.handleListCredentials)
		ar.Put("/credentials", s.handlePutCredential)

		ar.Post("/run", s.handleRun)
	})

	return r
}

func bearerAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
