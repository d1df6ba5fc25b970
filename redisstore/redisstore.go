package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/a-h/chatrag/index"
	"github.com/a-h/chatrag/session"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "chatrag:documents:"

// Options to connect to Redis.
type Options struct {
	Address  string
	Password string
	DB       int
}

func DefaultOptions() Options {
	return Options{
		Address: "localhost:6379",
	}
}

// ParseURL reads options from a redis:// URL. An empty URL gives the default options.
func ParseURL(s string) (o Options, err error) {
	if s == "" {
		return DefaultOptions(), nil
	}
	ro, err := redis.ParseURL(s)
	if err != nil {
		return o, fmt.Errorf("redisstore: parse URL failed: %w", err)
	}
	return Options{
		Address:  ro.Addr,
		Password: ro.Password,
		DB:       ro.DB,
	}, nil
}

func New(o Options) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     o.Address,
			Password: o.Password,
			DB:       o.DB,
		}),
	}
}

type Store struct {
	client *redis.Client
}

func key(scope session.Scope) string {
	return keyPrefix + url.QueryEscape(scope.Partition) + ":" + url.QueryEscape(scope.Conversation)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Load(ctx context.Context, scope session.Scope) (docs []index.Document, ok bool, err error) {
	value, err := s.client.Get(ctx, key(scope)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redisstore: get failed: %w", err)
	}
	if err = json.Unmarshal(value, &docs); err != nil {
		return nil, false, fmt.Errorf("redisstore: failed to unmarshal documents: %w", err)
	}
	return docs, true, nil
}

func (s *Store) Save(ctx context.Context, scope session.Scope, docs []index.Document) error {
	if docs == nil {
		docs = []index.Document{}
	}
	value, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("redisstore: failed to marshal documents: %w", err)
	}
	if err = s.client.Set(ctx, key(scope), value, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set failed: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, scope session.Scope) error {
	if err := s.client.Del(ctx, key(scope)).Err(); err != nil {
		return fmt.Errorf("redisstore: delete failed: %w", err)
	}
	return nil
}
