package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/a-h/chatrag"
	"github.com/a-h/chatrag/auth"
	"github.com/a-h/chatrag/chunker"
	"github.com/a-h/chatrag/db"
	"github.com/a-h/chatrag/filestore"
	chatpost "github.com/a-h/chatrag/handlers/chat/post"
	contextpost "github.com/a-h/chatrag/handlers/context/post"
	conversationsdelete "github.com/a-h/chatrag/handlers/conversations/delete"
	documentsdelete "github.com/a-h/chatrag/handlers/documents/delete"
	documentsget "github.com/a-h/chatrag/handlers/documents/get"
	documentspost "github.com/a-h/chatrag/handlers/documents/post"
	healthget "github.com/a-h/chatrag/handlers/health/get"
	historyget "github.com/a-h/chatrag/handlers/history/get"
	providersget "github.com/a-h/chatrag/handlers/providers/get"
	querypost "github.com/a-h/chatrag/handlers/query/post"
	"github.com/a-h/chatrag/index"
	"github.com/a-h/chatrag/providers"
	"github.com/a-h/chatrag/redisstore"
	"github.com/a-h/chatrag/session"
	"github.com/rqlite/gorqlite"
	"github.com/rs/cors"
	"github.com/sethvargo/go-retry"
	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/sync/errgroup"
)

type ServeCommand struct {
	Mode      string `help:"Where models run: local uses Ollama for chat and embeddings, cloud uses hosted providers." env:"MODE" enum:"local,cloud" default:"local"`
	OllamaURL string `help:"The URL of the Ollama server." env:"OLLAMA_URL" default:"http://127.0.0.1:11434/"`

	ChatProvider    string `help:"The chat provider to use in cloud mode (openai, anthropic, googleai, nvidia, azure)." env:"CHAT_PROVIDER" default:"openai"`
	ChatModel       string `help:"The model to chat with." env:"CHAT_MODEL" default:"mistral-nemo"`
	ChatAPIKey      string `help:"The API key of the chat provider." env:"CHAT_API_KEY" default:""`
	ChatBaseURL     string `help:"Overrides the URL of OpenAI compatible chat providers." env:"CHAT_BASE_URL" default:""`
	AzureAPIVersion string `help:"The Azure OpenAI API version." env:"AZURE_API_VERSION" default:"2024-06-01"`

	EmbeddingProvider string        `help:"The embedding provider to use in cloud mode (ollama, openai, google)." env:"EMBEDDING_PROVIDER" default:"ollama"`
	EmbeddingModel    string        `help:"The model to use for embeddings." env:"EMBEDDING_MODEL" default:"nomic-embed-text"`
	EmbeddingAPIKey   string        `help:"The API key of the embedding provider." env:"EMBEDDING_API_KEY" default:""`
	EmbeddingBaseURL  string        `help:"Overrides the URL of the OpenAI embeddings API." env:"EMBEDDING_BASE_URL" default:""`
	EmbedTimeout      time.Duration `help:"The maximum duration of each embedding request, zero for no limit." env:"EMBED_TIMEOUT" default:"30s"`

	Store     string `help:"Where conversation documents are kept." env:"STORE" enum:"memory,file,rqlite,redis" default:"memory"`
	StoreDir  string `help:"The directory used by the file store." env:"STORE_DIR" default:"data"`
	RqliteURL string `help:"The URL of the rqlite server." env:"RQLITE_URL" default:"http://localhost:4001"`
	RedisURL  string `help:"The URL of the Redis server. Defaults to localhost:6379." env:"REDIS_URL"`

	Splitter     string `help:"How documents are split into chunks." env:"SPLITTER" enum:"window,markdown" default:"window"`
	ChunkSize    int    `help:"The number of characters in each chunk." env:"CHUNK_SIZE" default:"500"`
	ChunkOverlap int    `help:"The number of characters shared by consecutive chunks." env:"CHUNK_OVERLAP" default:"100"`

	MaxDocumentBytes int64 `help:"The maximum size of a document upload request body." env:"MAX_DOCUMENT_BYTES" default:"33554432"`

	SystemPrompt   string `help:"The file containing the system prompt to use." env:"SYSTEM_PROMPT" default:""`
	UserPrompt     string `help:"The file containing the user prompt template used by queries." env:"USER_PROMPT" default:""`
	MaxContextDocs int    `help:"The maximum number of context chunks to use." env:"MAX_CONTEXT_DOCS" default:"3"`
	ListenAddr     string `help:"The address to listen on." env:"LISTEN_ADDR" default:"localhost:9020"`
	TLSCertFile    string `help:"The TLS certificate file." env:"TLS_CERT_FILE" default:""`
	TLSKeyFile     string `help:"The TLS key file." env:"TLS_KEY_FILE" default:""`
	APIKeysFile    string `help:"The file containing a JSON map of API keys to usernames." env:"API_KEYS_FILE" default:"apikeys.json"`
	LogLevel       string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

const systemPrompt = `You are a helpful assistant. When information from the user's documents is provided, you use it to answer. If you don't know the answer, you say that you don't know, and don't try to make up an answer.

You respect the user's time and don't provide unnecessary information. You are succinct and to the point.`

const userPrompt = `Here is the context you need to answer the question:

%s

Please provide a succint response to: %s`

func readFileOrDefault(filename, defaultContent string) (string, error) {
	if filename == "" {
		return defaultContent, nil
	}
	contents, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return string(contents), nil
}

func (c ServeCommand) providersConfig(httpClient *http.Client) providers.Config {
	return providers.Config{
		Mode:              providers.Mode(c.Mode),
		OllamaURL:         c.OllamaURL,
		ChatProvider:      c.ChatProvider,
		ChatModel:         c.ChatModel,
		ChatAPIKey:        c.ChatAPIKey,
		ChatBaseURL:       c.ChatBaseURL,
		AzureAPIVersion:   c.AzureAPIVersion,
		EmbeddingProvider: c.EmbeddingProvider,
		EmbeddingModel:    c.EmbeddingModel,
		EmbeddingAPIKey:   c.EmbeddingAPIKey,
		EmbeddingBaseURL:  c.EmbeddingBaseURL,
		HTTPClient:        httpClient,
	}
}

func (c ServeCommand) splitter() (textsplitter.TextSplitter, error) {
	if c.Splitter == "markdown" {
		return textsplitter.NewMarkdownTextSplitter(
			textsplitter.WithChunkSize(c.ChunkSize),
			textsplitter.WithChunkOverlap(c.ChunkOverlap)), nil
	}
	return chunker.New(c.ChunkSize, c.ChunkOverlap)
}

// startupBackoff retries connections to stores that may still be starting.
func startupBackoff() retry.Backoff {
	return retry.WithMaxRetries(5, retry.NewExponential(250*time.Millisecond))
}

// store returns the document store, and a closer to release its resources.
func (c ServeCommand) store(ctx context.Context, log *slog.Logger) (store session.Store, closer io.Closer, err error) {
	switch c.Store {
	case "file":
		log.Info("using file store", slog.String("dir", c.StoreDir))
		store, err = filestore.New(c.StoreDir)
		return store, nopCloser, err
	case "rqlite":
		log.Info("connecting to database", slog.String("url", c.RqliteURL))
		databaseURL, err := db.ParseRqliteURL(c.RqliteURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse rqlite URL: %w", err)
		}
		log.Info("migrating database schema", slog.String("url", databaseURL.MigrateDatabaseURL()))
		var conn *gorqlite.Connection
		err = retry.Do(ctx, startupBackoff(), func(ctx context.Context) (err error) {
			if conn, err = db.Open(c.RqliteURL); err != nil {
				log.Warn("database not ready", slog.Any("error", err))
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db.New(conn), closerFunc(func() error { conn.Close(); return nil }), nil
	case "redis":
		opts, err := redisstore.ParseURL(c.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		log.Info("connecting to Redis", slog.String("addr", opts.Address))
		rs := redisstore.New(opts)
		err = retry.Do(ctx, startupBackoff(), func(ctx context.Context) error {
			if err := rs.Ping(ctx); err != nil {
				log.Warn("Redis not ready", slog.Any("error", err))
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			rs.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return rs, rs, nil
	}
	log.Info("using memory store, documents will be lost on restart")
	return session.NewMemoryStore(), nopCloser, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

func (c ServeCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)
	systemPrompt, err := readFileOrDefault(c.SystemPrompt, systemPrompt)
	if err != nil {
		return fmt.Errorf("failed to read system prompt: %w", err)
	}
	userPrompt, err := readFileOrDefault(c.UserPrompt, userPrompt)
	if err != nil {
		return fmt.Errorf("failed to read user prompt: %w", err)
	}
	pf := func(q, context string) (string, error) {
		return fmt.Sprintf(userPrompt, context, q), nil
	}
	if _, err = pf("hello", "world"); err != nil {
		return fmt.Errorf("invalid prompt template: %w", err)
	}

	splitter, err := c.splitter()
	if err != nil {
		return fmt.Errorf("invalid chunk settings: %w", err)
	}

	store, closer, err := c.store(ctx, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	log.Info("creating LLM clients", slog.String("mode", c.Mode), slog.String("chatModel", c.ChatModel), slog.String("embeddingModel", c.EmbeddingModel))
	httpClient := &http.Client{}
	pc := c.providersConfig(httpClient)
	emb, err := providers.NewEmbedder(ctx, pc)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	emb = providers.WithTimeout(emb, c.EmbedTimeout)
	llmc, err := providers.NewModel(ctx, pc)
	if err != nil {
		return fmt.Errorf("failed to create LLM: %w", err)
	}

	sessions := session.New(log, store, func() *index.Index {
		return index.New(log, emb, splitter)
	})

	mux := http.NewServeMux()
	mux.Handle("POST /conversations/{id}/documents", documentspost.New(log, sessions, c.MaxDocumentBytes))
	mux.Handle("GET /conversations/{id}/documents", documentsget.New(log, sessions))
	ddh := documentsdelete.New(log, sessions)
	mux.Handle("DELETE /conversations/{id}/documents", ddh)
	mux.Handle("DELETE /conversations/{id}/documents/{index}", ddh)
	mux.Handle("POST /conversations/{id}/context", contextpost.New(log, sessions, c.MaxContextDocs))
	mux.Handle("POST /conversations/{id}/chat", chatpost.New(log, sessions, llmc, systemPrompt, c.MaxContextDocs))
	mux.Handle("POST /conversations/{id}/query", querypost.New(log, sessions, llmc, c.MaxContextDocs, systemPrompt, pf))
	mux.Handle("GET /conversations/{id}/history", historyget.New(log, sessions))
	mux.Handle("DELETE /conversations/{id}", conversationsdelete.New(log, sessions))
	ph := providersget.New(providers.Catalog)
	mux.Handle("GET /providers", ph)
	mux.Handle("GET /providers/{id}", ph)

	apiKeyToUserName, err := auth.LoadFromFile(c.APIKeysFile)
	if err != nil {
		return fmt.Errorf("failed to load API keys: %w", err)
	}
	s := &http.Server{
		Addr:    c.ListenAddr,
		Handler: routes(apiKeyToUserName, mux),
	}
	if c.TLSCertFile != "" && c.TLSKeyFile != "" {
		log.Info("Enabling TLS mode")
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load cert: %w", err)
		}
		s.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Listening", slog.String("addr", c.ListenAddr))
		var err error
		if s.TLSConfig != nil {
			err = s.ListenAndServeTLS(c.TLSCertFile, c.TLSKeyFile)
		} else {
			err = s.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// routes serves the health check without authentication, and everything else
// through the API key middleware.
func routes(apiKeyToUserName map[string]string, api http.Handler) http.Handler {
	root := http.NewServeMux()
	root.Handle("GET /health", healthget.New(chatrag.Version))
	root.Handle("/", auth.New(apiKeyToUserName, api))
	return cors.AllowAll().Handler(root)
}
