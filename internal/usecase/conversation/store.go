package conversation

import (
	"sync"

	"github.com/futig/knowledge-console/internal/entity"
)

// Store is the ordered message timeline of one session. Messages are never
// removed or reordered; only Clear empties it.
type Store struct {
	mu       sync.RWMutex
	messages []entity.ChatMessage
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Append(msg entity.ChatMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

// Messages returns a copy of the timeline in insertion order.
func (s *Store) Messages() []entity.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// LastUserMessage returns the most recent user message, if any.
func (s *Store) LastUserMessage() (entity.ChatMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == entity.RoleUser {
			return s.messages[i], true
		}
	}
	return entity.ChatMessage{}, false
}
