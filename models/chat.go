package models

type ChatPostRequest struct {
	// Text of the user's message.
	Text string `json:"text"`

	// NoContext indicates uploaded documents should not be used to
	// augment the message.
	NoContext bool `json:"noContext"`

	// TopK is the maximum number of chunks to add as context. Zero
	// uses the server default.
	TopK int `json:"topK,omitempty"`
}

type ChatMessageType string

const (
	ChatMessageTypeSystem ChatMessageType = "system"
	ChatMessageTypeHuman  ChatMessageType = "human"
	ChatMessageTypeAI     ChatMessageType = "ai"
)

type ChatMessage struct {
	Type    ChatMessageType `json:"type"`
	Content string          `json:"content"`
}

type HistoryGetResponse struct {
	Messages []ChatMessage `json:"msgs"`
}
