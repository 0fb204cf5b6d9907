package levels

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legacyLevelJSON(shortName, levelType, mode string) string {
	level := map[string]interface{}{
		"type":      levelType,
		"mode":      mode,
		"shortname": shortName,
		"world": []interface{}{
			map[string]interface{}{
				"zone": []interface{}{
					map[string]interface{}{
						"data": []interface{}{
							[]interface{}{float64(0), float64(17 << 16)},
							[]interface{}{float64(98331), float64(0)},
						},
						"obj": []interface{}{
							map[string]interface{}{"pos": float64(5), "type": float64(97)},
						},
					},
				},
			},
		},
	}
	raw, _ := json.Marshal(level)
	return string(raw)
}

func mustParse(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	level, err := ParseCustom(raw)
	require.NoError(t, err)
	return level
}

func TestValidateAcceptsLegacyAndLayered(t *testing.T) {
	legacy := mustParse(t, legacyLevelJSON("1-1", "game", "royale"))
	assert.NoError(t, Validate(legacy))

	MigrateLayers(legacy)
	assert.NoError(t, Validate(legacy))
}

func TestValidateRejectsBrokenShapes(t *testing.T) {
	cases := map[string]string{
		"no type":   `{"world":[{"zone":[{"data":[[0]]}]}]}`,
		"no world":  `{"type":"game"}`,
		"no zones":  `{"type":"game","world":[{}]}`,
		"no data":   `{"type":"game","world":[{"zone":[{}]}]}`,
		"bad tiles": `{"type":"game","world":[{"zone":[{"data":[["x"]]}]}]}`,
		"bad obj":   `{"type":"game","world":[{"zone":[{"data":[[0]],"obj":[{"pos":1}]}]}]}`,
	}
	for name, raw := range cases {
		_, err := ParseCustom(raw)
		assert.Error(t, err, name)
	}
}

func TestMigrateLayers(t *testing.T) {
	level := mustParse(t, legacyLevelJSON("1-1", "game", "royale"))
	MigrateLayers(level)

	var sawZone bool
	ForEachZone(level, func(zone map[string]interface{}) {
		sawZone = true
		_, hasData := zone["data"]
		assert.False(t, hasData)
		rows, ok := LayerZeroData(zone)
		require.True(t, ok)
		assert.Len(t, rows, 2)
	})
	assert.True(t, sawZone)

	// Already-layered zones pass through untouched.
	before, _ := json.Marshal(level)
	MigrateLayers(level)
	after, _ := json.Marshal(level)
	assert.JSONEq(t, string(before), string(after))
}

func TestDeepCopyIsDetached(t *testing.T) {
	level := mustParse(t, legacyLevelJSON("1-1", "game", "royale"))
	clone := CopyLevel(level)

	MigrateLayers(clone)
	_, cloneHasData := clone["world"].([]interface{})[0].(map[string]interface{})["zone"].([]interface{})[0].(map[string]interface{})["data"]
	_, origHasData := level["world"].([]interface{})[0].(map[string]interface{})["zone"].([]interface{})[0].(map[string]interface{})["data"]
	assert.False(t, cloneHasData)
	assert.True(t, origHasData)
}

func TestPlaceGoldFlower(t *testing.T) {
	level := mustParse(t, legacyLevelJSON("1-1", "game", "royale"))
	MigrateLayers(level)

	require.True(t, PlaceGoldFlower(level))

	var flowers int
	ForEachZone(level, func(zone map[string]interface{}) {
		rows, _ := LayerZeroData(zone)
		for _, r := range rows {
			for _, c := range r.([]interface{}) {
				tile := Num(c)
				if (tile>>24)&0xff == 100 {
					flowers++
					assert.Equal(t, 17, (tile>>16)&0xff)
				}
			}
		}
	})
	assert.Equal(t, 1, flowers)
}

func TestPlaceGoldFlowerNoItemBlocks(t *testing.T) {
	level := mustParse(t, `{"type":"game","world":[{"zone":[{"data":[[0,98331]]}]}]}`)
	MigrateLayers(level)
	assert.False(t, PlaceGoldFlower(level))
}

func TestCatalogReload(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("a.json", legacyLevelJSON("1-2", "game", "royale"))
	write("b.json", legacyLevelJSON("1-1", "game", "royale"))
	write("lobby.json", legacyLevelJSON("hub", "lobby", ""))
	write("broken.json", "{nope")

	c := NewCatalog(dir)
	require.True(t, c.Enabled())
	require.NoError(t, c.Reload())

	assert.True(t, c.Has("a.json"))
	assert.True(t, c.Has("b.json"))
	assert.False(t, c.Has("broken.json"))

	list := c.List("game", "royale")
	require.Len(t, list, 2)
	// Sorted by short id, not filename.
	assert.Equal(t, Entry{ShortID: "1-1", LongID: "b.json"}, list[0])
	assert.Equal(t, Entry{ShortID: "1-2", LongID: "a.json"}, list[1])

	data, err := c.Random("lobby", "")
	require.NoError(t, err)
	assert.Equal(t, "hub", data["shortname"])

	_, err = c.Random("game", "hell")
	assert.Error(t, err)

	// Deleting a file drops it on the next pass.
	require.NoError(t, os.Remove(filepath.Join(dir, "a.json")))
	require.NoError(t, c.Reload())
	assert.False(t, c.Has("a.json"))

	// An edit bumps the mtime and re-reads the content.
	write("b.json", legacyLevelJSON("9-9", "game", "royale"))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "b.json"), future, future))
	require.NoError(t, c.Reload())
	list = c.List("game", "royale")
	require.Len(t, list, 1)
	assert.Equal(t, "9-9", list[0].ShortID)
}

func TestCatalogDisabledWithoutDir(t *testing.T) {
	c := NewCatalog("")
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Reload())
	assert.False(t, c.Has("a.json"))

	c = NewCatalog("/definitely/not/a/real/dir")
	assert.False(t, c.Enabled())
}
