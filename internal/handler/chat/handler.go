package chat

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/reconecta/chat/backend/internal/model/chat"
	chatService "github.com/reconecta/chat/backend/internal/service/chat"
	"github.com/reconecta/chat/backend/pkg/utils"
)

// Handler exposes the conversations of REST clients.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a conversation handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes mounts the conversation routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/conversations", h.handleCreateConversation)
	r.Get("/conversations/{conversationID}/messages", h.handleListMessages)
	r.Delete("/conversations/{conversationID}", h.handleDeleteConversation)
}

type conversationResponse struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	Messages  []chat.Message `json:"messages"`
}

func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	conv := h.chatSvc.CreateConversation(r.Context())

	utils.RespondJSON(w, http.StatusCreated, conversationResponse{
		ID:        conv.ID,
		CreatedAt: conv.CreatedAt,
		Messages:  conv.Store().Snapshot(),
	})
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.LoadTranscript(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.DeleteConversation(r.Context(), chi.URLParam(r, "conversationID")); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, chatService.ErrConversationNotFound) {
		status = http.StatusNotFound
	}
	utils.RespondError(w, status, err.Error())
}
