// internal/levels/levels.go
//
// Level catalog backed by a directory of JSON files. The maintenance loop
// calls Reload on every pass; new files are picked up, edited files are
// re-read on mtime change, and deleted files drop out of the catalog.
// Level data stays schemaless (map[string]interface{}) because the format
// belongs to the client; the server only validates the structure it needs
// for tile and object authority.
package levels

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry is one row of the gll level list sent to room owners.
type Entry struct {
	ShortID string `json:"shortId"`
	LongID  string `json:"longId"`
}

type record struct {
	data      map[string]interface{}
	shortName string
	levelType string
	mode      string
	mtime     time.Time
}

// Catalog indexes the levels directory by filename. A Catalog with an empty
// dir is disabled and every lookup misses; the server then falls back to
// the built-in world lists from server.cfg.
type Catalog struct {
	mu     sync.Mutex
	dir    string
	levels map[string]*record
}

func NewCatalog(dir string) *Catalog {
	if dir != "" {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			dir = ""
		}
	}
	return &Catalog{dir: dir, levels: make(map[string]*record)}
}

// Enabled reports whether a levels directory is backing the catalog.
func (c *Catalog) Enabled() bool {
	return c.dir != ""
}

// Reload synchronizes the catalog with the directory contents. A file that
// fails to parse or validate is logged and skipped; an already-loaded copy
// of it is kept.
func (c *Catalog) Reload() error {
	if c.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read levels dir: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		seen[name] = true
		info, err := e.Info()
		if err != nil {
			continue
		}
		old, ok := c.levels[name]
		if ok && !info.ModTime().After(old.mtime) {
			continue
		}
		rec, err := c.loadFile(name, info.ModTime())
		if err != nil {
			logrus.Warnf("level %s: %v", name, err)
			continue
		}
		c.levels[name] = rec
		if ok {
			logrus.Infof("level %s reloaded", name)
		} else {
			logrus.Infof("level %s loaded", name)
		}
	}

	for name := range c.levels {
		if !seen[name] {
			delete(c.levels, name)
			logrus.Infof("level %s deleted", name)
		}
	}
	return nil
}

func (c *Catalog) loadFile(name string, mtime time.Time) (*record, error) {
	raw, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		return nil, err
	}
	// Tolerate a UTF-8 BOM from editors that insist on one.
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return &record{
		data:      data,
		shortName: str(data["shortname"]),
		levelType: str(data["type"]),
		mode:      str(data["mode"]),
		mtime:     mtime,
	}, nil
}

// Get returns the level data for a catalog filename.
func (c *Catalog) Get(name string) (map[string]interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.levels[name]
	if !ok {
		return nil, false
	}
	return rec.data, true
}

// Has reports whether the catalog holds a level with that filename.
func (c *Catalog) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.levels[name]
	return ok
}

// List returns the selectable levels of a type/mode, sorted by short id.
// An empty mode matches every level of the type.
func (c *Catalog) List(levelType, mode string) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Entry
	for name, rec := range c.levels {
		if rec.levelType != levelType {
			continue
		}
		if mode != "" && rec.mode != mode {
			continue
		}
		out = append(out, Entry{ShortID: rec.shortName, LongID: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShortID < out[j].ShortID })
	return out
}

// Random picks a random level of the given type/mode.
func (c *Catalog) Random(levelType, mode string) (map[string]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var names []string
	for name, rec := range c.levels {
		if rec.levelType != levelType {
			continue
		}
		if mode != "" && rec.mode != mode {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no levels match type %q mode %q", levelType, mode)
	}
	return c.levels[names[rand.Intn(len(names))]].data, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}
