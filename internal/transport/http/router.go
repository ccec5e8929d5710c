package http

import (
	"net/http"
	"time"

	httpmw "github.com/zonegrid/presence-service/internal/transport/http/middleware"
	"github.com/zonegrid/presence-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h *Handler, tokens httpmw.TokenVerifier, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// WS endpoint; аутентификация — первым сообщением в сокете
	r.Get("/ws", wsServer.HandleWS)

	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.AuthMiddleware(tokens))
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Get("/presence/status", h.Status)

		pr.Route("/areas/{id}", func(ar chi.Router) {
			ar.Post("/enter", h.EnterArea)
			ar.Post("/exit", h.ExitArea)
			ar.Get("/statistics", h.AreaStatistics)
			ar.Get("/participants", h.AreaParticipants)
			ar.Get("/history", h.AreaHistory)
		})

		pr.Get("/users/{id}/history", h.UserHistory)
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
