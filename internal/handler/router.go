package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reconecta/chat/backend/internal/handler/chat"
	"github.com/reconecta/chat/backend/internal/handler/persona"
	"github.com/reconecta/chat/backend/internal/handler/stream"
	"github.com/reconecta/chat/backend/internal/handler/ws"
	"github.com/reconecta/chat/backend/internal/logging"
	middlewarePkg "github.com/reconecta/chat/backend/internal/middleware"
	chatService "github.com/reconecta/chat/backend/internal/service/chat"
	"github.com/reconecta/chat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the conversation service.
func NewRouter(chatSvc *chatService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":        "ok",
			"conversations": chatSvc.Count(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		persona.New(chatSvc.Persona()).RegisterRoutes(api)
		chat.New(chatSvc).RegisterRoutes(api)
		stream.New(chatSvc).RegisterRoutes(api)
		ws.New(chatSvc).RegisterRoutes(api)
	})

	return r
}
