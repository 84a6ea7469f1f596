// Package server exposes the HTTP surface: the messaging-platform and
// agent-platform webhooks plus a small admin API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Server wraps the HTTP listener and the route table.
type Server struct {
	srv *http.Server
}

// NewServer builds the router and binds the handlers.
func NewServer(port int, client *ClientWebhook, agent *AgentWebhook, admin *Admin) *Server {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Twilio-Signature"},
	}))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Post("/webhooks/client", client.Handle)
	r.Post("/webhooks/agent", agent.Handle)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/switch/toggle", admin.ToggleSwitch)
		r.Get("/analytics/year", admin.YearAnalytics)
	})

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start runs the listener until Shutdown or a listener error.
func (s *Server) Start() error {
	fmt.Printf("[Server] Listening on %s\n", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
