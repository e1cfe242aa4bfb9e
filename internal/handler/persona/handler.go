package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reconecta/chat/backend/internal/model/persona"
	"github.com/reconecta/chat/backend/pkg/utils"
)

// Handler serves the persona card shown in the page header.
type Handler struct {
	persona persona.Persona
}

// New returns a handler for p.
func New(p persona.Persona) *Handler {
	return &Handler{persona: p}
}

// RegisterRoutes mounts the persona routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/persona", h.handleGetPersona)
}

func (h *Handler) handleGetPersona(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.persona)
}
