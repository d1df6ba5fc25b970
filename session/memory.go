package session

import (
	"context"
	"slices"
	"sync"

	"github.com/a-h/chatrag/index"
)

// MemoryStore keeps documents for the lifetime of the process.
type MemoryStore struct {
	m    sync.Mutex
	docs map[Scope][]index.Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[Scope][]index.Document),
	}
}

func (ms *MemoryStore) Load(ctx context.Context, scope Scope) (docs []index.Document, ok bool, err error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	docs, ok = ms.docs[scope]
	return slices.Clone(docs), ok, nil
}

func (ms *MemoryStore) Save(ctx context.Context, scope Scope, docs []index.Document) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	ms.docs[scope] = slices.Clone(docs)
	return nil
}

func (ms *MemoryStore) Delete(ctx context.Context, scope Scope) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	delete(ms.docs, scope)
	return nil
}
