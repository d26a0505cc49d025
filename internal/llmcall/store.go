package llmcall

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of calls a Store keeps when none is given.
const DefaultCapacity = 500

// Store keeps the most recent LLM calls in memory. When full, the oldest
// call is overwritten.
type Store struct {
	mu    sync.RWMutex
	calls []*Call
	next  int
	full  bool
}

// NewStore creates a new LLMCall store holding up to capacity calls.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{calls: make([]*Call, capacity)}
}

// QueryFilter specifies filters for listing LLM calls.
type QueryFilter struct {
	RequestID string
	PromptKey string
	Provider  string
	Model     string
	After     *time.Time
	Before    *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

func (f QueryFilter) matches(c *Call) bool {
	if f.RequestID != "" && c.RequestID != f.RequestID {
		return false
	}
	if f.PromptKey != "" && c.PromptKey != f.PromptKey {
		return false
	}
	if f.Provider != "" && c.Provider != f.Provider {
		return false
	}
	if f.Model != "" && c.Model != f.Model {
		return false
	}
	if f.Success != nil && c.Success != *f.Success {
		return false
	}
	if f.After != nil && !c.Timestamp.After(*f.After) {
		return false
	}
	if f.Before != nil && !c.Timestamp.Before(*f.Before) {
		return false
	}
	return true
}

// Add stores a call.
func (s *Store) Add(c *Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[s.next] = c
	s.next = (s.next + 1) % len(s.calls)
	if s.next == 0 {
		s.full = true
	}
}

// Len returns the number of stored calls.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.calls)
	}
	return s.next
}

// Get retrieves a single LLM call by ID. Returns nil if not found.
func (s *Store) Get(id string) *Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.newestFirst() {
		if c.ID == id {
			copied := *c
			return &copied
		}
	}
	return nil
}

// List returns calls matching the filter, newest first.
func (s *Store) List(filter QueryFilter) []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Call, 0)
	skipped := 0
	for _, c := range s.newestFirst() {
		if !filter.matches(c) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, *c)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// CountByPromptKey returns call counts grouped by prompt key.
func (s *Store) CountByPromptKey() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, c := range s.newestFirst() {
		counts[c.PromptKey]++
	}
	return counts
}

// newestFirst must be called with the lock held.
func (s *Store) newestFirst() []*Call {
	n := s.next
	if s.full {
		n = len(s.calls)
	}
	out := make([]*Call, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + len(s.calls)) % len(s.calls)
		out = append(out, s.calls[idx])
	}
	return out
}
