package integration

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/chatrag/client"
	chatpost "github.com/a-h/chatrag/handlers/chat/post"
	"github.com/a-h/chatrag/models"
)

func TestChatPost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	buf := new(bytes.Buffer)
	f := func(ctx context.Context, chunk []byte) (err error) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err = buf.Write(chunk)
		return err
	}
	c := client.New("http://localhost:9020", "test-api-key-no-llm")
	_, err := c.ChatPost(context.Background(), "integration-chat", models.ChatPostRequest{
		Text:      "This is a test message.",
		NoContext: false,
	}, f)
	if err != nil {
		t.Fatalf("failed to post chat: %v", err)
	}
	actual := buf.String()
	if actual != chatpost.TestMessage {
		t.Fatalf("expected %q, got %q", chatpost.TestMessage, actual)
	}
}
