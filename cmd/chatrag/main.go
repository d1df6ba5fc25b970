package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

type CLI struct {
	Serve     ServeCommand     `cmd:"serve" help:"Start the chat server."`
	Import    ImportCommand    `cmd:"import" help:"Import documents into a conversation."`
	Context   ContextCommand   `cmd:"context" help:"Get the chunks of a conversation's documents closest to a piece of text."`
	Documents DocumentsCommand `cmd:"documents" help:"List or remove the documents of a conversation."`
	Chat      ChatCommand      `cmd:"chat" help:"Chat with the server."`
	Query     QueryCommand     `cmd:"query" help:"Ask a single question about a conversation's documents."`
	Providers ProvidersCommand `cmd:"providers" help:"List the chat and embedding providers."`
	Version   VersionCommand   `cmd:"version" help:"Print the version of the chat server."`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		getLogger("error").Error("failed to load .env file", slog.Any("error", err))
		os.Exit(1)
	}
	var cli CLI
	ctx := context.Background()
	kctx := kong.Parse(&cli, kong.UsageOnError(), kong.BindTo(ctx, (*context.Context)(nil)))
	if err := kctx.Run(); err != nil {
		log := getLogger("error")
		log.Error("error", slog.Any("error", err))
		os.Exit(1)
	}
}

func getLogger(level string) *slog.Logger {
	ll := slog.LevelInfo
	switch level {
	case "debug":
		ll = slog.LevelDebug
	case "info":
		ll = slog.LevelInfo
	case "warn":
		ll = slog.LevelWarn
	case "error":
		ll = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ll,
	}))
}
