// internal/wordfilter/filter.go
//
// Nickname and squad-tag screening. The checker folds common letter
// substitutions (leetspeak digits, then symbol stand-ins) before doing a
// substring scan against the blacklist, so "m0r0n" and "|diot" are caught
// alongside their plain spellings.
package wordfilter

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// leetLetters maps digit n to its look-alike letter; '9' has none.
const leetLetters = "oizeasgtb"

// Filter holds the lowercase blacklist. The zero value matches nothing.
type Filter struct {
	words []string
}

// New builds a filter from a wordlist. Words are lowercased; entries of
// three runes or fewer never match and are dropped up front.
func New(words []string) *Filter {
	f := &Filter{}
	for _, w := range words {
		if len([]rune(w)) <= 3 {
			continue
		}
		f.words = append(f.words, strings.ToLower(w))
	}
	return f
}

// Load reads a JSON array of words. A missing file yields an empty filter,
// matching the source setup where the wordlist ships separately.
func Load(path string) (*Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("read wordlist: %w", err)
	}
	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("parse wordlist %s: %w", path, err)
	}
	return New(words), nil
}

// Match reports whether the name contains a blacklisted word, directly or
// under the substitution folds. Names of three runes or fewer are exempt.
func (f *Filter) Match(name string) bool {
	if f.contains(name) {
		return true
	}
	folded := leetFold(name)
	if f.contains(folded) {
		return true
	}
	folded = symbolFold(folded)
	return f.contains(folded)
}

func (f *Filter) contains(name string) bool {
	if len([]rune(name)) <= 3 {
		return false
	}
	name = strings.ToLower(name)
	for _, w := range f.words {
		if strings.Contains(name, w) {
			return true
		}
	}
	return false
}

// leetFold lowercases and replaces digits 0-8 with their look-alike letters.
func leetFold(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range strings.ToLower(word) {
		if r >= '0' && r <= '8' {
			b.WriteByte(leetLetters[r-'0'])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// symbolFold maps symbol stand-ins to letters and strips everything that is
// not alphanumeric.
func symbolFold(word string) string {
	replaced := strings.NewReplacer("|", "i", "$", "s", "@", "a", "&", "e").Replace(word)
	var b strings.Builder
	b.Grow(len(replaced))
	for _, r := range replaced {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
