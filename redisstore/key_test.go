package redisstore

import (
	"testing"

	"github.com/a-h/chatrag/session"
)

func TestKey(t *testing.T) {
	tests := []struct {
		scope    session.Scope
		expected string
	}{
		{
			scope:    session.Scope{Partition: "bob", Conversation: "c"},
			expected: "chatrag:documents:bob:c",
		},
		{
			scope:    session.Scope{Partition: "bob:admin", Conversation: "c"},
			expected: "chatrag:documents:bob%3Aadmin:c",
		},
		{
			scope:    session.Scope{Partition: "bob", Conversation: "admin:c"},
			expected: "chatrag:documents:bob:admin%3Ac",
		},
	}
	seen := map[string]session.Scope{}
	for _, tt := range tests {
		actual := key(tt.scope)
		if actual != tt.expected {
			t.Errorf("%v: expected key %q, got %q", tt.scope, tt.expected, actual)
		}
		if other, ok := seen[actual]; ok {
			t.Errorf("%v and %v share the key %q", tt.scope, other, actual)
		}
		seen[actual] = tt.scope
	}
}
