package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconecta/chat/backend/internal/model/chat"
	"github.com/reconecta/chat/backend/internal/model/persona"
	chatservice "github.com/reconecta/chat/backend/internal/service/chat"
)

func setupRouter() (*chi.Mux, *chatservice.Service) {
	chatSvc := chatservice.NewService(nil, persona.Seed(), chatservice.Options{}, 0)
	handler := New(chatSvc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(method, target, nil))
	return resp
}

func TestCreateConversationReturnsGreeting(t *testing.T) {
	r, chatSvc := setupRouter()

	resp := serve(r, http.MethodPost, "/conversations")
	require.Equal(t, http.StatusCreated, resp.Code)

	var body conversationResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.NotEmpty(t, body.ID)
	assert.False(t, body.CreatedAt.IsZero())
	require.Len(t, body.Messages, 1)
	assert.Equal(t, chatservice.InitialMessageID, body.Messages[0].ID)
	assert.Equal(t, chat.SenderBot, body.Messages[0].Sender)
	assert.Equal(t, 1, chatSvc.Count())
}

func TestListMessages(t *testing.T) {
	r, chatSvc := setupRouter()
	conv := chatSvc.CreateConversation(context.Background())

	resp := serve(r, http.MethodGet, "/conversations/"+conv.ID+"/messages")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Messages []chat.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, conv.Store().Snapshot(), body.Messages)
}

func TestUnknownConversation(t *testing.T) {
	r, _ := setupRouter()

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/conversations/nope/messages").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodDelete, "/conversations/nope").Code)
}

func TestDeleteConversation(t *testing.T) {
	r, chatSvc := setupRouter()
	conv := chatSvc.CreateConversation(context.Background())

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/conversations/"+conv.ID).Code)
	assert.Zero(t, chatSvc.Count())
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/conversations/"+conv.ID+"/messages").Code)
}
