// Package convo holds per-user conversation history with a bounded
// number of remembered turns.
package convo

import "sync"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message in a conversation. The JSON shape
// matches the completion endpoint's message format.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultMaxTurns is the number of user/assistant exchange pairs kept
// per conversation.
const DefaultMaxTurns = 10

// Store keeps one conversation per user ID. Every conversation starts
// with the system turn, which is pinned at index 0 and never evicted.
// Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	system   string
	maxTurns int
	convos   map[int64][]Turn
}

func NewStore(systemPrompt string, maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Store{
		system:   systemPrompt,
		maxTurns: maxTurns,
		convos:   make(map[int64][]Turn),
	}
}

// GetOrCreate returns a copy of the user's conversation, seeding it with
// the system turn on first contact. Callers may hand the copy to the
// completion client without holding any store lock.
func (s *Store) GetOrCreate(user int64) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.seed(user)
	out := make([]Turn, len(h))
	copy(out, h)
	return out
}

// Append adds a turn to the user's conversation and evicts the oldest
// user/assistant turns once the history exceeds 1 + 2*maxTurns entries.
// The system turn is always retained; relative order is preserved.
func (s *Store) Append(user int64, role Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append(s.seed(user), Turn{Role: role, Content: text})
	if limit := 1 + 2*s.maxTurns; len(h) > limit {
		kept := make([]Turn, 0, limit)
		kept = append(kept, h[0])
		kept = append(kept, h[len(h)-2*s.maxTurns:]...)
		h = kept
	}
	s.convos[user] = h
}

// Reset replaces the user's conversation with a freshly seeded one.
// Resetting an unknown user is not an error.
func (s *Store) Reset(user int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convos[user] = []Turn{{Role: RoleSystem, Content: s.system}}
}

// Len reports the number of turns in the user's conversation, zero if
// the user has never been seen.
func (s *Store) Len(user int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convos[user])
}

// Users reports how many conversations the store currently holds.
func (s *Store) Users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convos)
}

// seed returns the user's history, creating the seeded conversation if
// absent. Caller must hold s.mu.
func (s *Store) seed(user int64) []Turn {
	h, ok := s.convos[user]
	if !ok {
		h = []Turn{{Role: RoleSystem, Content: s.system}}
		s.convos[user] = h
	}
	return h
}
