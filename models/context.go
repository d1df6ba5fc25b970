package models

type ContextPostRequest struct {
	Text string `json:"text"`
	TopK int    `json:"topK,omitempty"`
}

type ContextPostResponse struct {
	Results []ContextResult `json:"results"`
}

type ContextResult struct {
	Text     string  `json:"text"`
	Document string  `json:"document"`
	Score    float64 `json:"score"`
}
