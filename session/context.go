package session

import (
	"strings"

	"github.com/a-h/chatrag/index"
)

const (
	contextHeader = "Here is relevant information from uploaded documents:\n\n"
	contextFooter = "Based on the above information and your knowledge, please answer the user's question."
)

// FormatContext renders retrieved chunks as a system message. It returns an
// empty string when there is nothing to add.
func FormatContext(results []index.Result) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(contextHeader)
	for _, r := range results {
		sb.WriteString("[From ")
		sb.WriteString(r.Document)
		sb.WriteString("]:\n")
		sb.WriteString(r.Text)
		sb.WriteString("\n\n")
	}
	sb.WriteString(contextFooter)
	return sb.String()
}

// Sources returns the distinct document names of the results in rank order.
func Sources(results []index.Result) (names []string) {
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if _, ok := seen[r.Document]; ok {
			continue
		}
		seen[r.Document] = struct{}{}
		names = append(names, r.Document)
	}
	return names
}
