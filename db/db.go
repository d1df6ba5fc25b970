package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/a-h/chatrag/index"
	"github.com/a-h/chatrag/session"
	"github.com/rqlite/gorqlite"
)

func New(conn *gorqlite.Connection) *Queries {
	return &Queries{
		conn: conn,
	}
}

// Queries stores conversation documents in rqlite. It implements session.Store.
type Queries struct {
	conn *gorqlite.Connection
}

var _ session.Store = &Queries{}

// Save replaces all documents of the scope in a single batch of statements.
func (q *Queries) Save(ctx context.Context, scope session.Scope, docs []index.Document) (err error) {
	statements := []gorqlite.ParameterizedStatement{
		{
			Query:     `delete from document_chunk where partition = ? and conversation = ?`,
			Arguments: []any{scope.Partition, scope.Conversation},
		},
		{
			Query:     `delete from document where partition = ? and conversation = ?`,
			Arguments: []any{scope.Partition, scope.Conversation},
		},
	}
	for position, doc := range docs {
		statements = append(statements, gorqlite.ParameterizedStatement{
			Query:     `insert into document (partition, conversation, position, name, text, created_at, word_count, skipped) values (?, ?, ?, ?, ?, ?, ?, ?)`,
			Arguments: []any{scope.Partition, scope.Conversation, position, doc.Name, doc.Text, doc.CreatedAt.UTC().Format(time.RFC3339Nano), doc.WordCount, doc.Skipped},
		})
		for chunkIndex, chunk := range doc.Chunks {
			embeddingJSON, err := json.Marshal(doc.Embeddings[chunkIndex])
			if err != nil {
				return fmt.Errorf("db: failed to marshal embedding: %w", err)
			}
			statements = append(statements, gorqlite.ParameterizedStatement{
				Query:     `insert into document_chunk (partition, conversation, position, idx, text, embedding) values (?, ?, ?, ?, ?, ?)`,
				Arguments: []any{scope.Partition, scope.Conversation, position, chunkIndex, chunk, string(embeddingJSON)},
			})
		}
	}
	if _, err = q.conn.WriteParameterizedContext(ctx, statements); err != nil {
		return fmt.Errorf("db: save failed: %w", err)
	}
	return nil
}

func (q *Queries) Delete(ctx context.Context, scope session.Scope) (err error) {
	statements := []gorqlite.ParameterizedStatement{
		{
			Query:     `delete from document_chunk where partition = ? and conversation = ?`,
			Arguments: []any{scope.Partition, scope.Conversation},
		},
		{
			Query:     `delete from document where partition = ? and conversation = ?`,
			Arguments: []any{scope.Partition, scope.Conversation},
		},
	}
	if _, err = q.conn.WriteParameterizedContext(ctx, statements); err != nil {
		return fmt.Errorf("db: delete failed: %w", err)
	}
	return nil
}

// Load returns the documents of the scope in position order. A scope with no
// documents is reported as not found.
func (q *Queries) Load(ctx context.Context, scope session.Scope) (docs []index.Document, ok bool, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `select name, text, created_at, word_count, skipped from document where partition = ? and conversation = ? order by position`,
		Arguments: []any{scope.Partition, scope.Conversation},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return nil, false, fmt.Errorf("db: select documents failed: %w", err)
	}
	for result.Next() {
		var doc index.Document
		var createdAt string
		var wordCount, skipped int64
		if err = result.Scan(&doc.Name, &doc.Text, &createdAt, &wordCount, &skipped); err != nil {
			return nil, false, err
		}
		if doc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, false, fmt.Errorf("db: invalid created_at %q: %w", createdAt, err)
		}
		doc.WordCount = int(wordCount)
		doc.Skipped = int(skipped)
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, false, nil
	}

	stmt = gorqlite.ParameterizedStatement{
		Query:     `select position, text, embedding from document_chunk where partition = ? and conversation = ? order by position, idx`,
		Arguments: []any{scope.Partition, scope.Conversation},
	}
	result, err = q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return nil, false, fmt.Errorf("db: select chunks failed: %w", err)
	}
	for result.Next() {
		var position int64
		var text, embeddingJSON string
		if err = result.Scan(&position, &text, &embeddingJSON); err != nil {
			return nil, false, err
		}
		if position < 0 || int(position) >= len(docs) {
			return nil, false, fmt.Errorf("db: chunk references missing document position %d", position)
		}
		var embedding []float32
		if err = json.Unmarshal([]byte(embeddingJSON), &embedding); err != nil {
			return nil, false, fmt.Errorf("db: failed to unmarshal embedding: %w", err)
		}
		docs[position].Chunks = append(docs[position].Chunks, text)
		docs[position].Embeddings = append(docs[position].Embeddings, embedding)
	}
	return docs, true, nil
}
