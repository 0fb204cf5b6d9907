package wordfilter

import "strings"

// SanitizeName normalizes a player-chosen display name: drop non-ASCII
// runes, trim, cap at 20 bytes, collapse inner whitespace runs to single
// spaces, and uppercase. The cap runs before the collapse so a name padded
// with spaces cannot smuggle extra length through.
func SanitizeName(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r <= 0x7F {
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(b.String())
	if len(s) > 20 {
		s = s[:20]
	}
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToUpper(s)
}

// SanitizeTeam normalizes a team tag for storage and display: first three
// bytes, trimmed and lowercased. Room matching uppercases its own copy.
func SanitizeTeam(raw string) string {
	if len(raw) > 3 {
		raw = raw[:3]
	}
	return strings.ToLower(strings.TrimSpace(raw))
}
