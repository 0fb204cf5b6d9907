// internal/handlers/blocklist.go
package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// BlockEntry is one address ban. The file stores entries as [address, name,
// reason] triples, so the JSON shape is kept by hand.
type BlockEntry struct {
	Address string
	Name    string
	Reason  int
}

func (e BlockEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.Address, e.Name, e.Reason})
}

func (e *BlockEntry) UnmarshalJSON(data []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("block entry needs 3 fields, got %d", len(raw))
	}
	addr, ok := raw[0].(string)
	if !ok {
		return fmt.Errorf("block entry address is not a string")
	}
	name, _ := raw[1].(string)
	reason, _ := raw[2].(float64)
	e.Address = addr
	e.Name = name
	e.Reason = int(reason)
	return nil
}

// Blocklist is the persistent address ban file. Contains is on the hot path
// of every join, so lookups go through a map rebuilt on load. Reload is
// driven by the maintenance loop and skips the re-parse while the content
// hash is unchanged, which also picks up hand edits to the file.
type Blocklist struct {
	mu      sync.Mutex
	path    string
	hash    string
	entries []BlockEntry
	byAddr  map[string]bool
}

// LoadBlocklist reads the ban file. A missing file starts an empty list;
// the file is created on the first Add.
func LoadBlocklist(path string) (*Blocklist, error) {
	b := &Blocklist{path: path, byAddr: make(map[string]bool)}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload re-reads the file if its content changed.
func (b *Blocklist) Reload() error {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read blocklist: %w", err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	b.mu.Lock()
	defer b.mu.Unlock()
	if hash == b.hash {
		return nil
	}

	var entries []BlockEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse blocklist %s: %w", b.path, err)
	}

	byAddr := make(map[string]bool, len(entries))
	for _, e := range entries {
		byAddr[e.Address] = true
	}
	b.hash = hash
	b.entries = entries
	b.byAddr = byAddr
	return nil
}

// Contains reports whether the address is banned.
func (b *Blocklist) Contains(addr string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.byAddr[addr]
}

// Add records a ban and rewrites the file. An already-banned address is a
// no-op so repeat offenses do not grow the file.
func (b *Blocklist) Add(addr, name string, reason int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.byAddr[addr] {
		return nil
	}
	b.entries = append(b.entries, BlockEntry{Address: addr, Name: name, Reason: reason})
	b.byAddr[addr] = true

	data, err := json.Marshal(b.entries)
	if err != nil {
		return err
	}
	if err := writeAtomic(b.path, data); err != nil {
		return fmt.Errorf("write blocklist: %w", err)
	}
	sum := sha256.Sum256(data)
	b.hash = hex.EncodeToString(sum[:])
	return nil
}

// Len reports the entry count.
func (b *Blocklist) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
