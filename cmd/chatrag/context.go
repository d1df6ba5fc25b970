package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/a-h/chatrag/client"
	"github.com/a-h/chatrag/models"
)

type ContextCommand struct {
	ServerURL    string `help:"The URL of the chat server." env:"CHATRAG_SERVER_URL" default:"http://localhost:9020"`
	ServerAPIKey string `help:"The API key for the chat server." env:"CHATRAG_SERVER_API_KEY" default:""`
	Conversation string `help:"The ID of the conversation to search." required:""`
	Text         string `help:"The text to send."`
	TopK         int    `help:"The maximum number of chunks to return, zero for the server default." default:"0"`
	Pretty       bool   `help:"Pretty print the JSON output." default:"true"`
	LogLevel     string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ContextCommand) Run(ctx context.Context) (err error) {
	rsc := client.New(c.ServerURL, c.ServerAPIKey)
	resp, err := rsc.ContextPost(ctx, c.Conversation, models.ContextPostRequest{
		Text: c.Text,
		TopK: c.TopK,
	})
	if err != nil {
		return fmt.Errorf("failed to get context: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}
