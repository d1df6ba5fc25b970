package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		contains []string
		expected error
	}{
		{
			name:     "plain text is returned as is",
			filename: "notes.txt",
			content:  "cats are mammals",
			contains: []string{"cats are mammals"},
		},
		{
			name:     "markdown is read as text",
			filename: "README.md",
			content:  "# Title\n\nSome text.",
			contains: []string{"# Title", "Some text."},
		},
		{
			name:     "html tags are removed",
			filename: "page.HTML",
			content:  "<html><body><p>cars have wheels</p></body></html>",
			contains: []string{"cars have wheels"},
		},
		{
			name:     "empty files have no text",
			filename: "empty.txt",
			content:  "  \n ",
			expected: ErrNoText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := Text(context.Background(), tt.filename, []byte(tt.content))
			if !errors.Is(err, tt.expected) {
				t.Fatalf("expected error %v, got %v", tt.expected, err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(actual, s) {
					t.Errorf("expected %q to contain %q", actual, s)
				}
			}
			if strings.Contains(actual, "<p>") {
				t.Errorf("expected markup to be removed, got %q", actual)
			}
		})
	}
}

func TestTextInvalidPDF(t *testing.T) {
	if _, err := Text(context.Background(), "broken.pdf", []byte("not a pdf")); err == nil {
		t.Errorf("expected an error for an invalid PDF")
	}
}
