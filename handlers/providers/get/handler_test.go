package get

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/chatrag/models"
	"github.com/a-h/chatrag/providers"
	"github.com/google/go-cmp/cmp"
)

func serve(target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h := New(providers.Catalog)
	mux.Handle("GET /providers", h)
	mux.Handle("GET /providers/{id}", h)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	return w
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expected       models.ProvidersGetResponse
	}{
		{
			name:           "all providers are listed",
			target:         "/providers",
			expectedStatus: http.StatusOK,
			expected:       providers.Catalog,
		},
		{
			name:           "a chat only provider",
			target:         "/providers/anthropic",
			expectedStatus: http.StatusOK,
			expected:       models.ProvidersGetResponse{Chat: []models.Provider{providers.Catalog.Chat[1]}},
		},
		{
			name:           "a provider of chat and embeddings",
			target:         "/providers/openai",
			expectedStatus: http.StatusOK,
			expected: models.ProvidersGetResponse{
				Chat:      []models.Provider{providers.Catalog.Chat[0]},
				Embedding: []models.Provider{providers.Catalog.Embedding[1]},
			},
		},
		{
			name:           "unknown providers are not found",
			target:         "/providers/voyage",
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(tt.target)
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var actual models.ProvidersGetResponse
			if err := json.NewDecoder(w.Body).Decode(&actual); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if diff := cmp.Diff(tt.expected, actual); diff != "" {
				t.Error(diff)
			}
		})
	}
}
