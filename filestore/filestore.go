package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/chatrag/index"
	"github.com/a-h/chatrag/session"
)

// New creates a store that writes one JSON file per conversation to dir, in a
// directory per partition.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: failed to create directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

type Store struct {
	dir string
}

type file struct {
	Partition    string           `json:"partition"`
	Conversation string           `json:"conversation"`
	Documents    []index.Document `json:"documents"`
}

// escape makes s safe to use as a single path element. Dots are escaped so
// that "." and ".." cannot name a parent directory.
func escape(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), ".", "%2E")
}

func (s *Store) partitionDir(scope session.Scope) string {
	return filepath.Join(s.dir, "p"+escape(scope.Partition))
}

func (s *Store) path(scope session.Scope) string {
	return filepath.Join(s.partitionDir(scope), "c"+escape(scope.Conversation)+".json")
}

func (s *Store) Load(ctx context.Context, scope session.Scope) (docs []index.Document, ok bool, err error) {
	f, err := os.Open(s.path(scope))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("filestore: failed to open: %w", err)
	}
	defer f.Close()
	var contents file
	if err = json.NewDecoder(f).Decode(&contents); err != nil {
		return nil, false, fmt.Errorf("filestore: failed to decode %s: %w", f.Name(), err)
	}
	if contents.Partition != scope.Partition || contents.Conversation != scope.Conversation {
		return nil, false, fmt.Errorf("filestore: %s belongs to %s:%s", f.Name(), contents.Partition, contents.Conversation)
	}
	return contents.Documents, true, nil
}

func (s *Store) Save(ctx context.Context, scope session.Scope, docs []index.Document) (err error) {
	if err = os.MkdirAll(s.partitionDir(scope), 0o755); err != nil {
		return fmt.Errorf("filestore: failed to create partition directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "save-*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())
	contents := file{
		Partition:    scope.Partition,
		Conversation: scope.Conversation,
		Documents:    docs,
	}
	if err = json.NewEncoder(tmp).Encode(contents); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: failed to encode: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("filestore: failed to close temporary file: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path(scope)); err != nil {
		return fmt.Errorf("filestore: failed to replace file: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, scope session.Scope) error {
	err := os.Remove(s.path(scope))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filestore: failed to delete: %w", err)
	}
	return nil
}
