package delete

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/chatrag/handlers/handlertest"
	"github.com/a-h/chatrag/session"
)

func TestHandler(t *testing.T) {
	tests := []struct {
		name              string
		path              string
		expectedStatus    int
		expectedDocuments []string
	}{
		{
			name:              "a document can be removed by index",
			path:              "/conversations/abc/documents/1",
			expectedStatus:    http.StatusNoContent,
			expectedDocuments: []string{"a.txt", "c.txt"},
		},
		{
			name:              "all documents can be removed",
			path:              "/conversations/abc/documents",
			expectedStatus:    http.StatusNoContent,
			expectedDocuments: []string{},
		},
		{
			name:              "indexes out of range are not found",
			path:              "/conversations/abc/documents/3",
			expectedStatus:    http.StatusNotFound,
			expectedDocuments: []string{"a.txt", "b.txt", "c.txt"},
		},
		{
			name:              "negative indexes are not found",
			path:              "/conversations/abc/documents/-1",
			expectedStatus:    http.StatusNotFound,
			expectedDocuments: []string{"a.txt", "b.txt", "c.txt"},
		},
		{
			name:              "indexes must be numbers",
			path:              "/conversations/abc/documents/first",
			expectedStatus:    http.StatusBadRequest,
			expectedDocuments: []string{"a.txt", "b.txt", "c.txt"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			sessions := handlertest.NewManager(handlertest.Embedder{})
			s, err := sessions.Get(ctx, session.Scope{Partition: handlertest.User, Conversation: "abc"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
				if _, _, err = s.AddDocument(ctx, name, "text of "+name); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}

			h := New(handlertest.Log, sessions)
			mux := http.NewServeMux()
			mux.Handle("DELETE /conversations/{id}/documents", h)
			mux.Handle("DELETE /conversations/{id}/documents/{index}", h)
			w := handlertest.Serve(mux, "/", httptest.NewRequest("DELETE", tt.path, nil))
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			docs := s.Documents()
			if len(docs) != len(tt.expectedDocuments) {
				t.Fatalf("expected %d documents, got %d", len(tt.expectedDocuments), len(docs))
			}
			for i, name := range tt.expectedDocuments {
				if docs[i].Name != name {
					t.Errorf("document %d: expected %q, got %q", i, name, docs[i].Name)
				}
			}
		})
	}
}
