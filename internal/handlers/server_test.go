// internal/handlers/server_test.go
package handlers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginThrottle(t *testing.T) {
	srv := newTestServer(t, "")
	addr := "203.0.113.9"

	for i := 0; i < 3; i++ {
		srv.noteLoginFailure(addr)
		assert.False(t, srv.loginThrottled(addr), "failure %d must not block yet", i+1)
	}
	srv.noteLoginFailure(addr)
	assert.True(t, srv.loginThrottled(addr))

	// Other addresses are unaffected.
	assert.False(t, srv.loginThrottled("203.0.113.10"))

	// Force the block to expire.
	srv.mu.Lock()
	srv.ipBlocks[addr] = time.Now().Add(-time.Second)
	srv.mu.Unlock()
	assert.False(t, srv.loginThrottled(addr))
}

func TestLoginFailuresResetOnSuccess(t *testing.T) {
	srv := newTestServer(t, "")
	addr := "203.0.113.9"

	srv.noteLoginFailure(addr)
	srv.noteLoginFailure(addr)
	srv.clearLoginFailures(addr)

	for i := 0; i < 3; i++ {
		srv.noteLoginFailure(addr)
	}
	assert.False(t, srv.loginThrottled(addr), "counter must restart after a success")
}

func TestSkinValidation(t *testing.T) {
	srv := newTestServer(t, "[Server]\nSkinCount = 3\nRestrictPublicSkins = true\n")

	// Without asset metadata the config count rules alone.
	assert.True(t, srv.skinAllowed(0, true))
	assert.True(t, srv.skinAllowed(2, false))
	assert.False(t, srv.skinAllowed(3, false))
	assert.False(t, srv.skinAllowed(-1, false))

	srv.loadAssetsMetadata([]byte(`{
		"skins": {
			"count": 5,
			"properties": [
				{"id": 0, "forGuests": true},
				{"id": 1, "forGuests": false},
				{"id": 4, "forGuests": true}
			]
		}
	}`))

	// The manifest count replaces the config count.
	assert.True(t, srv.skinAllowed(4, false))
	assert.False(t, srv.skinAllowed(5, false))

	// Guests are held to the forGuests subset.
	assert.True(t, srv.skinAllowed(4, true))
	assert.False(t, srv.skinAllowed(1, true))
	assert.True(t, srv.skinAllowed(1, false))
}

func TestFileChangedTracksContentHash(t *testing.T) {
	srv := newTestServer(t, "")
	path := filepath.Join(t.TempDir(), "f.json")

	_, changed := srv.fileChanged(path)
	assert.False(t, changed, "missing file reports unchanged")

	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))
	data, changed := srv.fileChanged(path)
	require.True(t, changed)
	assert.Equal(t, "one", string(data))

	_, changed = srv.fileChanged(path)
	assert.False(t, changed, "same content must not re-trigger")

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
	data, changed = srv.fileChanged(path)
	require.True(t, changed)
	assert.Equal(t, "two", string(data))
}

func TestWriteStatusIsAtomicJSON(t *testing.T) {
	srv := newTestServer(t, "")
	path := filepath.Join(t.TempDir(), "status.json")

	srv.writeStatus(path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var status struct {
		Active      int  `json:"active"`
		Maintenance bool `json:"maintenance"`
	}
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.Zero(t, status.Active)
	assert.False(t, status.Maintenance)

	srv.beginDrain()
	srv.writeStatus(path)
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.True(t, status.Maintenance)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not linger")
}

func TestMaintainFinishesDrainWhenIdle(t *testing.T) {
	srv := newTestServer(t, "")

	assert.False(t, srv.maintain(), "no drain requested")

	srv.beginDrain()
	assert.True(t, srv.Draining())
	assert.True(t, srv.maintain(), "no players left, drain is complete")
}

func TestShutdownSentinelStartsDrain(t *testing.T) {
	dir := t.TempDir()
	sentinel := filepath.Join(dir, "shutdown")
	srv := newTestServer(t, "[Server]\nShutdownPath = "+sentinel+"\n")

	assert.False(t, srv.Draining())
	require.NoError(t, os.WriteFile(sentinel, nil, 0o644))

	srv.maintain()
	assert.True(t, srv.Draining())

	_, err := os.Stat(sentinel)
	assert.True(t, os.IsNotExist(err), "sentinel must be consumed")
}

func TestRandomLevelBuiltinPools(t *testing.T) {
	srv := newTestServer(t, "[Match]\nWorldsHell = 7-1,7-2\n")

	world, data, err := srv.RandomLevel("lobby", "")
	require.NoError(t, err)
	assert.Equal(t, "lobby", world)
	assert.Nil(t, data)

	world, _, err = srv.RandomLevel("game", "royale")
	require.NoError(t, err)
	assert.Equal(t, "1-1", world)

	world, _, err = srv.RandomLevel("game", "hell")
	require.NoError(t, err)
	assert.Contains(t, []string{"7-1", "7-2"}, world)

	_, _, err = srv.RandomLevel("bogus", "")
	assert.Error(t, err)
}
