package config

import "sync"

// Live holds the currently active Settings and lets the maintenance loop
// swap in a re-parsed file without racing readers. Callers grab a snapshot
// with Current and must not write through it.
type Live struct {
	mu sync.RWMutex
	s  *Settings
}

func NewLive(s *Settings) *Live {
	return &Live{s: s}
}

// Current returns the active settings snapshot.
func (l *Live) Current() *Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.s
}

// Replace installs new settings and returns the previous snapshot so the
// caller can react to changes, e.g. a lowered player cap.
func (l *Live) Replace(s *Settings) *Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.s
	l.s = s
	return prev
}
