// internal/game/store.go
package game

import "sync"

// MatchStore owns the list of live public and named-private rooms. Join
// order follows creation order, so the oldest open room fills first. The
// lock order is always store before match.
type MatchStore struct {
	mu      sync.Mutex
	matches []*Match
}

func NewMatchStore() *MatchStore {
	return &MatchStore{}
}

// FindOrCreate returns the oldest joinable room for the key, building one
// through the factory when none fits. Solo-private rooms (private with no
// room name) are never listed; each caller gets a throwaway room of its
// own.
func (s *MatchStore) FindOrCreate(roomName string, private bool, gameMode string, playerCap int, allowLateEnter bool, create func() *Match) *Match {
	if private && roomName == "" {
		return create()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if joinable(m, roomName, private, gameMode, playerCap, allowLateEnter) {
			return m
		}
	}
	m := create()
	s.matches = append(s.matches, m)
	return m
}

func joinable(m *Match, roomName string, private bool, gameMode string, playerCap int, allowLateEnter bool) bool {
	if m.GameMode != gameMode || m.Private != private {
		return false
	}
	// Public rooms pool by mode alone; the name only keys private rooms.
	if private && m.RoomName != roomName {
		return false
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.closed || len(m.players) >= playerCap {
		return false
	}
	if m.playing && !allowLateEnter {
		return false
	}
	return true
}

// Remove drops a room from the listing. Unlisted rooms pass through
// harmlessly.
func (s *MatchStore) Remove(m *Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, q := range s.matches {
		if q == m {
			s.matches = append(s.matches[:i], s.matches[i+1:]...)
			return
		}
	}
}

// List snapshots the listed rooms.
func (s *MatchStore) List() []*Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Match, len(s.matches))
	copy(out, s.matches)
	return out
}

// Count reports how many rooms are listed.
func (s *MatchStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}
