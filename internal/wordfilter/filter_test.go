package wordfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testFilter() *Filter {
	return New([]string{"idiot", "moron", "badword"})
}

func TestMatchPlainWord(t *testing.T) {
	f := testFilter()

	assert.True(t, f.Match("idiot"))
	assert.True(t, f.Match("some idiot here"))
	assert.True(t, f.Match("IDIOT"))
	assert.False(t, f.Match("friendly"))
}

func TestMatchLeetDigits(t *testing.T) {
	f := testFilter()

	// 0 -> o, 1 -> i, 3 -> e, 4 -> a
	assert.True(t, f.Match("m0r0n"))
	assert.True(t, f.Match("1d1ot"))
	assert.True(t, f.Match("b4dword"))
}

func TestMatchSymbolFold(t *testing.T) {
	f := testFilter()

	assert.True(t, f.Match("|diot"))
	assert.True(t, f.Match("b@dword"))
	assert.True(t, f.Match("b.a.d.w.o.r.d"))
}

func TestShortNamesExempt(t *testing.T) {
	f := New([]string{"ass", "idiot"})

	// Blacklist entries of three runes or fewer are dropped, and names of
	// three runes or fewer never match.
	assert.False(t, f.Match("ass"))
	assert.False(t, f.Match("bass player"))
	assert.False(t, f.Match("id"))
}

func TestNineIsNotFolded(t *testing.T) {
	f := New([]string{"gggg"})

	assert.False(t, f.Match("9999"))
	assert.True(t, f.Match("6666"))
}

func TestEmptyFilter(t *testing.T) {
	f := New(nil)

	assert.False(t, f.Match("anything at all"))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "MARIO", SanitizeName("mario"))
	assert.Equal(t, "A B", SanitizeName("  a \t b  "))
	assert.Equal(t, "CAF", SanitizeName("café"))
	assert.Equal(t, "", SanitizeName("éè"))

	long := SanitizeName("abcdefghijklmnopqrstuvwxyz")
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRST", long)
	assert.LessOrEqual(t, len(long), 20)
}

func TestSanitizeTeam(t *testing.T) {
	assert.Equal(t, "abc", SanitizeTeam("abcdef"))
	assert.Equal(t, "red", SanitizeTeam("RED"))
	assert.Equal(t, "ab", SanitizeTeam("ab "))
	assert.Equal(t, "", SanitizeTeam("   "))
}
