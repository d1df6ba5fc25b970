package models

type QueryPostRequest struct {
	Text      string `json:"text"`
	NoContext bool   `json:"noContext"`
	TopK      int    `json:"topK,omitempty"`
}
