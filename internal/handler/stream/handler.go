package stream

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/reconecta/chat/backend/internal/logging"
	"github.com/reconecta/chat/backend/internal/model/chat"
	chatService "github.com/reconecta/chat/backend/internal/service/chat"
	"github.com/reconecta/chat/backend/pkg/utils"
)

// Handler runs conversation turns over Server-Sent Events.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a stream handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes mounts the stream route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{conversationID}", h.handleStream)
}

// handleStream runs one turn. Every store publish becomes a "messages" event
// followed by a "scroll" event; loading transitions become "loading" events
// and the response ends with "end".
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "conversationID")

	if !r.URL.Query().Has("message") {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}
	message := r.URL.Query().Get("message")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	conv, err := h.chatSvc.GetConversation(ctx, conversationID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	release, err := conv.Acquire()
	if err != nil {
		utils.RespondError(w, http.StatusConflict, err.Error())
		return
	}
	defer release()

	if _, err := conv.Controller.Session().Ensure(ctx); err != nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "chat session unavailable")
		return
	}

	logger := logging.Component("sse").With().Str("conv_id", conv.ID).Logger()
	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	out := &sseViewport{w: w, flusher: flusher, logger: logger}
	stopLoading := conv.Controller.OnLoadingChange(out.loading)
	detach := chatService.NewViewSynchronizer(out).Attach(conv.Store())

	err = conv.Controller.SendMessage(ctx, message)
	detach()
	stopLoading()

	if err != nil {
		if errors.Is(err, ctx.Err()) {
			return
		}
		logger.Error().Err(err).Msg("turn not started")
		out.send("error", map[string]string{"message": "chat session unavailable"})
	}
	out.send("end", map[string]any{"conversationId": conv.ID, "finished": true})
}

// sseViewport writes store snapshots to an SSE response. After the first
// failed write it stops writing.
type sseViewport struct {
	w       http.ResponseWriter
	flusher http.Flusher
	logger  zerolog.Logger
	broken  bool
}

func (v *sseViewport) Render(messages []chat.Message) {
	v.send("messages", map[string]any{"messages": messages})
}

func (v *sseViewport) ScrollToBottom() {
	v.send("scroll", map[string]string{"behavior": "smooth"})
}

func (v *sseViewport) loading(on bool) {
	v.send("loading", map[string]bool{"loading": on})
}

func (v *sseViewport) send(event string, data any) {
	if v.broken {
		return
	}
	if err := utils.SendSSEEvent(v.w, v.flusher, event, data); err != nil {
		v.broken = true
		v.logger.Debug().Err(err).Str("event", event).Msg("client went away")
	}
}
