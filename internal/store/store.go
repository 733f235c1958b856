// Package store holds the in-memory message list for the active room.
// It merges three sources without visible duplicates: the initial
// history load, locally-originated optimistic sends, and inbound live
// events. Pure data structure; no I/O.
package store

import (
	"sync"

	"chat-client/internal/models"
)

// Store is the ordered message list for one room. Ordering is strictly
// append order, never timestamp order: a provisional message renders at
// the point of submission and must not jump when its server echo
// arrives.
type Store struct {
	roomID   string
	mu       sync.RWMutex
	messages []models.Message
}

// New creates an empty store scoped to roomID.
func New(roomID string) *Store {
	return &Store{roomID: roomID}
}

// RoomID reports the room this store is scoped to.
func (s *Store) RoomID() string {
	return s.roomID
}

// Append merges one candidate message. It returns false and leaves the
// list unchanged when an existing entry is a duplicate under
// models.Message.Duplicate, which makes the merge idempotent:
// appending the same logical message twice never grows the list.
//
// When the duplicate pair is a provisional entry and a confirmed copy,
// the provisional entry is promoted in place (server id and created_at
// adopted) rather than appended, so the visible position is kept.
func (s *Store) Append(m models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.messages {
		if !existing.Duplicate(m) {
			continue
		}
		if existing.Provisional && !m.Provisional {
			s.promote(i, m)
		}
		return false
	}
	s.messages = append(s.messages, m)
	return true
}

// promote swaps a provisional entry for its confirmed copy without
// moving it. Display fields resolved client-side are kept.
func (s *Store) promote(i int, confirmed models.Message) {
	name := s.messages[i].SenderName
	confirmed.Provisional = false
	if confirmed.SenderName == "" {
		confirmed.SenderName = name
	}
	s.messages[i] = confirmed
}

// Seed merges a history batch in order. History may arrive before or
// after the first live events; the per-element duplicate rule is what
// keeps the result correct either way. It returns how many entries
// were actually added.
func (s *Store) Seed(history []models.Message) int {
	added := 0
	for _, m := range history {
		if s.Append(m) {
			added++
		}
	}
	return added
}

// Messages returns a copy of the visible list in append order.
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len reports the number of visible messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
