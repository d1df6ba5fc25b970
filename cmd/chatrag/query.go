package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/a-h/chatrag/client"
	"github.com/a-h/chatrag/models"
)

type QueryCommand struct {
	ServerURL    string `help:"The URL of the chat server." env:"CHATRAG_SERVER_URL" default:"http://localhost:9020"`
	ServerAPIKey string `help:"The API key for the chat server." env:"CHATRAG_SERVER_API_KEY" default:""`
	Conversation string `help:"The ID of the conversation whose documents are used as context." required:""`
	Text         string `help:"The question to ask." short:"q" required:""`
	NoContext    bool   `help:"Do not use context."`
	LogLevel     string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c QueryCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)
	if c.NoContext {
		log.Info("Querying without context")
	}

	rsc := client.New(c.ServerURL, c.ServerAPIKey)
	f := func(ctx context.Context, chunk []byte) error {
		_, err := os.Stdout.Write(chunk)
		return err
	}
	err = rsc.QueryPost(ctx, c.Conversation, models.QueryPostRequest{
		Text:      c.Text,
		NoContext: c.NoContext,
	}, f)
	if err != nil {
		log.Error("query failed", slog.Any("error", err))
		return fmt.Errorf("failed to query: %w", err)
	}
	fmt.Println()
	return nil
}
