package models

import "time"

type DocumentsPostRequest struct {
	Document Document `json:"document"`
}

// Document to add to a conversation. Either Text or Content must be set.
// Content holds the base64 encoded bytes of a file, and the text is
// extracted based on the extension of Name.
type Document struct {
	Name    string `json:"name"`
	Text    string `json:"text,omitempty"`
	Content []byte `json:"content,omitempty"`
}

type DocumentsPostResponse struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Chunks  int    `json:"chunks"`
	Skipped int    `json:"skipped"`
}

type DocumentsGetResponse struct {
	Documents []DocumentSummary `json:"documents"`
	Total     int               `json:"total"`
}

type DocumentSummary struct {
	Index     int       `json:"index"`
	Name      string    `json:"name"`
	Chunks    int       `json:"chunks"`
	Words     int       `json:"words"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}
