package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/chatrag/client"
	"github.com/a-h/chatrag/extract"
	"github.com/a-h/chatrag/models"
	"github.com/pluja/pocketbase"
	"gopkg.in/yaml.v3"
)

type ImportCommand struct {
	ServerURL     string   `help:"The URL of the chat server." env:"CHATRAG_SERVER_URL" default:"http://localhost:9020"`
	ServerAPIKey  string   `help:"The API key for the chat server." env:"CHATRAG_SERVER_API_KEY" default:""`
	Conversation  string   `help:"The ID of the conversation to import the documents into." required:""`
	Paths         []string `arg:"" optional:"" type:"existingfile" help:"Files to import. If none are given, documents are exported from Pocketbase."`
	PocketbaseURL string   `help:"The URL of the Pocketbase server." env:"POCKETBASE_URL" default:"http://localhost:8080"`
	ID            string   `help:"The ID of the document to import if you just want to import a single doc." env:"ID" default:""`
	Collection    string   `help:"The name of the collection to export from." env:"COLLECTION" default:"entities"`
	Expand        string   `help:"The fields to expand." env:"EXPAND" default:""`
	Files         string   `help:"Comma separated list of fields that contain Pocketbase file references." env:"FILES" default:""`
	DryRun        bool     `help:"Do not actually import the documents." env:"DRY_RUN" default:"false"`
	LogLevel      string   `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ImportCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	rsc := client.New(c.ServerURL, c.ServerAPIKey)

	if len(c.Paths) > 0 {
		for _, path := range c.Paths {
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %q: %w", path, err)
			}
			if err = c.post(ctx, log, rsc, models.Document{Name: filepath.Base(path), Content: content}); err != nil {
				return err
			}
		}
		return nil
	}

	pbe := NewPocketbaseExporter(c.PocketbaseURL, pocketbase.NewClient(c.PocketbaseURL), c.Collection, c.Expand, c.Files)
	for doc := range pbe.Export(ctx) {
		if c.ID != "" && doc.ID != c.ID {
			continue
		}
		if log.Enabled(ctx, slog.LevelDebug) {
			fmt.Println(doc.Document.Text)
		}
		if err = c.post(ctx, log, rsc, doc.Document); err != nil {
			return err
		}
	}
	return pbe.Error
}

func (c ImportCommand) post(ctx context.Context, log *slog.Logger, rsc client.Client, doc models.Document) error {
	log.Info("importing document", slog.String("name", doc.Name))
	if c.DryRun {
		log.Info("skipping document import in dry run mode", slog.String("name", doc.Name))
		return nil
	}
	resp, err := rsc.DocumentsPost(ctx, c.Conversation, models.DocumentsPostRequest{
		Document: doc,
	})
	if err != nil {
		return fmt.Errorf("failed to post document %q: %w", doc.Name, err)
	}
	log.Info("document imported", slog.String("name", doc.Name), slog.Int("index", resp.Index),
		slog.Int("chunks", resp.Chunks), slog.Int("skipped", resp.Skipped))
	return nil
}

func NewPocketbaseExporter(baseURL string, client *pocketbase.Client, collection, expand, files string) *PocketbaseExporter {
	return &PocketbaseExporter{
		baseURL:    baseURL,
		client:     client,
		collection: collection,
		expand:     expand,
		files:      strings.Split(files, ","),
		PageSize:   10,
		Error:      nil,
	}
}

type PocketbaseExporter struct {
	// baseURL for downloading files, e.g. http://localhost:8090
	baseURL    string
	client     *pocketbase.Client
	collection string
	expand     string
	files      []string
	PageSize   int
	Error      error
}

func (p *PocketbaseExporter) Export(ctx context.Context) iter.Seq[ExportedDocument] {
	var page int
	return func(yield func(ExportedDocument) bool) {
		for {
			if ctx.Err() != nil {
				return
			}
			if p.Error != nil {
				return
			}
			page++
			response, err := p.client.List(p.collection, pocketbase.ParamsList{
				Page:   page,
				Size:   p.PageSize,
				Sort:   "-created",
				Expand: p.expand,
			})
			if err != nil {
				p.Error = err
				return
			}
			if len(response.Items) == 0 {
				return
			}
			for _, item := range response.Items {
				if !yield(p.createDocument(ctx, item)) {
					return
				}
			}
		}
	}
}

func useItemOrDefault(item map[string]any, keys []string, defaultValue string) string {
	for _, key := range keys {
		if value, ok := item[key].(string); ok {
			return value
		}
	}
	return defaultValue
}

type ExportedDocument struct {
	ID       string
	Document models.Document
}

func (p *PocketbaseExporter) createDocument(ctx context.Context, item map[string]any) (ed ExportedDocument) {
	ed.ID = item["id"].(string)
	ed.Document.Name = useItemOrDefault(item, []string{"title", "name"}, fmt.Sprintf("%s/%s", url.PathEscape(p.collection), url.PathEscape(ed.ID)))
	recursivelyApplyExpandedFields(item)
	recursivelyRemoveKeys(item, []string{"id", "collectionId", "collectionName", "created", "updated"})

	sb := new(strings.Builder)
	_ = yaml.NewEncoder(sb).Encode(item)

	for _, fileFieldName := range p.files {
		if ctx.Err() != nil {
			return
		}
		fileNames, fileNamesFieldExists := item[fileFieldName].([]any)
		if !fileNamesFieldExists || len(fileNames) == 0 {
			continue
		}
		for _, fileName := range fileNames {
			// Check if the file name is a string.
			fileName, ok := fileName.(string)
			if !ok {
				p.Error = fmt.Errorf("file name is not a string")
				continue
			}
			if !extractable[strings.ToLower(filepath.Ext(fileName))] {
				continue
			}
			// Get the file text.
			fileText, err := p.getFileText(ctx, p.collection, ed.ID, fileName)
			if errors.Is(err, extract.ErrNoText) {
				continue
			}
			if err != nil {
				p.Error = fmt.Errorf("failed to get file text: %w", err)
				continue
			}
			sb.WriteString(fileText)
		}
	}

	ed.Document.Text = sb.String()

	return
}

// extractable file extensions are downloaded and added to the document text.
var extractable = map[string]bool{
	".pdf":  true,
	".html": true,
	".htm":  true,
	".txt":  true,
	".md":   true,
}

func (p *PocketbaseExporter) getFileText(ctx context.Context, collection, id, filename string) (string, error) {
	downloadURL, err := createURL(p.baseURL, "api", "files", collection, id, filename)
	if err != nil {
		return "", fmt.Errorf("failed to create download URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download file: unexpected status %d", resp.StatusCode)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	text, err := extract.Text(ctx, filename, content)
	if err != nil {
		return "", err
	}
	return text + "\n", nil
}

func createURL(baseURL string, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse baseURL: %w", err)
	}
	u.Path = strings.Join(pathSegments, "/")
	return u.String(), nil
}

func applyExpandedFields(data map[string]any) (changed bool) {
	for key, value := range data {
		if key == "expand" {
			expandMap, ok := value.(map[string]any)
			if !ok {
				continue
			}

			// Check parent keys for matches in expand.
			for parentKey := range data {
				if parentKey == "expand" {
					continue
				}
				if expandedValue, found := expandMap[parentKey]; found {
					data[parentKey] = expandedValue
					changed = true
				}
			}

			// Remove expand key.
			delete(data, "expand")
			changed = true
		} else if nestedMap, ok := value.(map[string]any); ok {
			// Recurse into nested maps.
			if applyExpandedFields(nestedMap) {
				changed = true
			}
		} else if nestedSlice, ok := value.([]any); ok {
			// Recurse into slices.
			for _, item := range nestedSlice {
				if itemMap, isMap := item.(map[string]any); isMap {
					if applyExpandedFields(itemMap) {
						changed = true
					}
				}
			}
		}
	}

	return changed
}

func recursivelyApplyExpandedFields(data map[string]any) {
	for {
		if changesMade := applyExpandedFields(data); !changesMade {
			return
		}
	}
}

func recursivelyRemoveKeys(item any, keys []string) {
	switch item := item.(type) {
	case map[string]any:
		for _, key := range keys {
			delete(item, key)
		}
		var emptyKeys []string
		for k, v := range item {
			switch v := v.(type) {
			case map[string]any:
				if len(v) == 0 {
					emptyKeys = append(emptyKeys, k)
				}
			case []any:
				if len(v) == 0 {
					emptyKeys = append(emptyKeys, k)
				}
			case string:
				if v == "" {
					emptyKeys = append(emptyKeys, k)
				}
			}
			recursivelyRemoveKeys(v, keys)
		}
		for _, key := range emptyKeys {
			delete(item, key)
		}
	case []any:
		for _, value := range item {
			recursivelyRemoveKeys(value, keys)
		}
	}
}
