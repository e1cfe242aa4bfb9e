package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconecta/chat/backend/internal/model/persona"
)

func TestGetPersonaHidesInstruction(t *testing.T) {
	r := chi.NewRouter()
	New(persona.Seed()).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/persona", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, persona.Seed().Name, body["name"])
	assert.Equal(t, persona.Seed().OpeningLine, body["openingLine"])
	assert.NotContains(t, body, "systemPrompt")
	assert.NotContains(t, body, "guidelines")
}
