package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

var ErrNoText = errors.New("extract: no text could be extracted")

// Text extracts the text of a file, choosing a loader by the extension of
// the file name. Unknown extensions are read as plain text.
func Text(ctx context.Context, filename string, content []byte) (text string, err error) {
	r := bytes.NewReader(content)
	var loader documentloaders.Loader
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		loader = documentloaders.NewPDF(r, int64(len(content)))
	case ".html", ".htm":
		loader = documentloaders.NewHTML(r)
	default:
		loader = documentloaders.NewText(r)
	}
	docs, err := loader.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("extract: failed to load %s: %w", filename, err)
	}
	text = join(docs)
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

func join(docs []schema.Document) string {
	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(doc.PageContent)
	}
	return sb.String()
}
