package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/a-h/chatrag/client"
	"github.com/a-h/chatrag/models"
)

type DocumentsCommand struct {
	List   DocumentsListCommand   `cmd:"list" default:"1" help:"List the documents of a conversation."`
	Remove DocumentsRemoveCommand `cmd:"remove" help:"Remove a document from a conversation."`
	Clear  DocumentsClearCommand  `cmd:"clear" help:"Remove every document from a conversation."`
}

type ConversationFlags struct {
	ServerURL    string `help:"The URL of the chat server." env:"CHATRAG_SERVER_URL" default:"http://localhost:9020"`
	ServerAPIKey string `help:"The API key for the chat server." env:"CHATRAG_SERVER_API_KEY" default:""`
	Conversation string `help:"The ID of the conversation." required:""`
}

func (f ConversationFlags) client() client.Client {
	return client.New(f.ServerURL, f.ServerAPIKey)
}

type DocumentsListCommand struct {
	ConversationFlags
}

func (c DocumentsListCommand) Run(ctx context.Context) (err error) {
	resp, err := c.client().DocumentsGet(ctx, c.Conversation)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tCHUNKS\tWORDS\tCREATED")
	for _, d := range resp.Documents {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", d.Index, d.Name, d.Chunks, d.Words, d.CreatedAt.Format(time.DateTime))
	}
	return w.Flush()
}

type DocumentsRemoveCommand struct {
	ConversationFlags
	Index int `arg:"" help:"The index of the document to remove."`
}

func (c DocumentsRemoveCommand) Run(ctx context.Context) (err error) {
	if err = c.client().DocumentDelete(ctx, c.Conversation, c.Index); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	return nil
}

type DocumentsClearCommand struct {
	ConversationFlags
}

func (c DocumentsClearCommand) Run(ctx context.Context) (err error) {
	if err = c.client().DocumentsDelete(ctx, c.Conversation); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}

type ProvidersCommand struct {
	ServerURL    string `help:"The URL of the chat server." env:"CHATRAG_SERVER_URL" default:"http://localhost:9020"`
	ServerAPIKey string `help:"The API key for the chat server." env:"CHATRAG_SERVER_API_KEY" default:""`
	ID           string `arg:"" optional:"" help:"Only list the models of this provider."`
}

func (c ProvidersCommand) Run(ctx context.Context) (err error) {
	cl := client.New(c.ServerURL, c.ServerAPIKey)
	var resp models.ProvidersGetResponse
	if c.ID != "" {
		resp, err = cl.ProviderGet(ctx, c.ID)
	} else {
		resp, err = cl.ProvidersGet(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list providers: %w", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tPROVIDER\tMODEL\tDIMENSIONS")
	for _, p := range resp.Chat {
		for _, m := range p.Models {
			fmt.Fprintf(w, "chat\t%s\t%s\t\n", p.ID, m.ID)
		}
	}
	for _, p := range resp.Embedding {
		for _, m := range p.Models {
			fmt.Fprintf(w, "embedding\t%s\t%s\t%d\n", p.ID, m.ID, m.Dimensions)
		}
	}
	return w.Flush()
}
