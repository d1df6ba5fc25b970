package chunker

import (
	"errors"
	"fmt"
)

const (
	DefaultSize    = 500
	DefaultOverlap = 100
)

var (
	ErrInvalidSize    = errors.New("chunker: size must be greater than zero")
	ErrInvalidOverlap = errors.New("chunker: overlap must be at least zero and less than size")
)

// Window splits text into fixed size windows of runes. Each window starts
// Size-Overlap runes after the previous one, so consecutive chunks share
// Overlap runes. The last window ends at the end of the text.
type Window struct {
	Size    int
	Overlap int
}

func New(size, overlap int) (w Window, err error) {
	if size <= 0 {
		return w, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	if overlap < 0 || overlap >= size {
		return w, fmt.Errorf("%w: got size %d, overlap %d", ErrInvalidOverlap, size, overlap)
	}
	return Window{Size: size, Overlap: overlap}, nil
}

// SplitText implements textsplitter.TextSplitter.
func (w Window) SplitText(text string) (chunks []string, err error) {
	if w.Size <= 0 {
		return nil, ErrInvalidSize
	}
	if w.Overlap < 0 || w.Overlap >= w.Size {
		return nil, ErrInvalidOverlap
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	step := w.Size - w.Overlap
	for start := 0; start < len(runes); start += step {
		end := min(start+w.Size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
