package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/a-h/chatrag/index"
	"github.com/a-h/chatrag/models"
)

// Scope identifies a conversation belonging to a partition (user).
type Scope struct {
	Partition    string
	Conversation string
}

func (s Scope) String() string {
	return fmt.Sprintf("%s:%s", s.Partition, s.Conversation)
}

// Store persists the documents of a conversation. Implementations must return
// documents exactly as they were saved, including chunks and embeddings.
type Store interface {
	Load(ctx context.Context, scope Scope) (docs []index.Document, ok bool, err error)
	Save(ctx context.Context, scope Scope, docs []index.Document) error
	Delete(ctx context.Context, scope Scope) error
}

// ErrDeleted is returned when changing a session after its conversation was deleted.
var ErrDeleted = errors.New("session: conversation deleted")

func New(log *slog.Logger, store Store, newIndex func() *index.Index) *Manager {
	return &Manager{
		log:      log,
		store:    store,
		newIndex: newIndex,
		entries:  make(map[Scope]*entry),
	}
}

// Manager owns the sessions of every conversation held by the server.
type Manager struct {
	log      *slog.Logger
	store    Store
	newIndex func() *index.Index

	m       sync.Mutex
	entries map[Scope]*entry
}

// entry is held while a scope is loaded or deleted, so store I/O for one
// conversation does not block the others.
type entry struct {
	m       sync.Mutex
	session *Session
}

func (m *Manager) entry(scope Scope) *entry {
	m.m.Lock()
	defer m.m.Unlock()
	e, ok := m.entries[scope]
	if !ok {
		e = &entry{}
		m.entries[scope] = e
	}
	return e
}

// Get returns the session for the scope, loading any persisted documents the
// first time the scope is seen.
func (m *Manager) Get(ctx context.Context, scope Scope) (*Session, error) {
	e := m.entry(scope)
	e.m.Lock()
	defer e.m.Unlock()
	if e.session != nil {
		return e.session, nil
	}
	idx := m.newIndex()
	docs, ok, err := m.store.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("session: failed to load documents for %s: %w", scope, err)
	}
	if ok {
		idx.Restore(docs)
		m.log.Debug("session documents loaded", slog.String("scope", scope.String()), slog.Int("documents", len(docs)))
	}
	e.session = &Session{
		log:   m.log,
		scope: scope,
		store: m.store,
		index: idx,
	}
	return e.session, nil
}

// Delete destroys the session's history and documents, including persisted
// state. Sessions obtained before the delete return ErrDeleted from then on.
func (m *Manager) Delete(ctx context.Context, scope Scope) error {
	e := m.entry(scope)
	e.m.Lock()
	defer e.m.Unlock()
	s := e.session
	e.session = nil
	if s != nil {
		// Wait for in-flight writes, so none can save after the delete.
		s.write.Lock()
		defer s.write.Unlock()
		s.deleted = true
		s.index.Clear()
		s.historyM.Lock()
		s.history = nil
		s.historyM.Unlock()
	}
	if err := m.store.Delete(ctx, scope); err != nil {
		return fmt.Errorf("session: failed to delete documents for %s: %w", scope, err)
	}
	return nil
}

type Session struct {
	log   *slog.Logger
	scope Scope
	store Store
	index *index.Index

	// Serialises mutations so that saves reach the store in order.
	write   sync.Mutex
	deleted bool

	historyM sync.RWMutex
	history  []models.ChatMessage
}

func (s *Session) Scope() Scope {
	return s.scope
}

func (s *Session) save(ctx context.Context) error {
	if err := s.store.Save(ctx, s.scope, s.index.Documents()); err != nil {
		return fmt.Errorf("session: failed to save documents for %s: %w", s.scope, err)
	}
	return nil
}

// AddDocument indexes the text and persists the conversation's documents. The
// position of the new document is returned alongside it.
func (s *Session) AddDocument(ctx context.Context, name, text string) (doc index.Document, position int, err error) {
	s.write.Lock()
	defer s.write.Unlock()
	if s.deleted {
		return doc, -1, ErrDeleted
	}
	doc, err = s.index.AddDocument(ctx, name, text)
	if err != nil {
		return doc, -1, err
	}
	position = s.index.Len() - 1
	return doc, position, s.save(ctx)
}

func (s *Session) RemoveDocument(ctx context.Context, position int) error {
	s.write.Lock()
	defer s.write.Unlock()
	if s.deleted {
		return ErrDeleted
	}
	if err := s.index.RemoveDocument(position); err != nil {
		return err
	}
	return s.save(ctx)
}

func (s *Session) ClearDocuments(ctx context.Context) error {
	s.write.Lock()
	defer s.write.Unlock()
	if s.deleted {
		return ErrDeleted
	}
	s.index.Clear()
	return s.save(ctx)
}

func (s *Session) Documents() []index.Document {
	return s.index.Documents()
}

func (s *Session) Query(ctx context.Context, text string, topK int) []index.Result {
	return s.index.Query(ctx, text, topK)
}

func (s *Session) History() []models.ChatMessage {
	s.historyM.RLock()
	defer s.historyM.RUnlock()
	return slices.Clone(s.history)
}

func (s *Session) AppendHistory(msgs ...models.ChatMessage) {
	s.historyM.Lock()
	defer s.historyM.Unlock()
	s.history = append(s.history, msgs...)
}
