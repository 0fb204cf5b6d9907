package levels

import "math/rand"

// Raw-shape helpers. Level JSON is kept as maps so it can be forwarded to
// clients untouched; these functions do the few structural edits the server
// performs before a round starts.

// DeepCopy clones a decoded JSON value. Each match mutates its own copy of
// the level, never the catalog's.
func DeepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = DeepCopy(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = DeepCopy(val)
		}
		return s
	default:
		return v
	}
}

// CopyLevel clones level data for per-match use.
func CopyLevel(level map[string]interface{}) map[string]interface{} {
	return DeepCopy(level).(map[string]interface{})
}

// MigrateLayers rewrites the legacy zone shape, where the tile grid sat
// directly in "data", into the layered shape: layers: [{z:0, data}].
func MigrateLayers(level map[string]interface{}) {
	ForEachZone(level, func(zone map[string]interface{}) {
		if _, ok := zone["layers"]; ok {
			return
		}
		data, ok := zone["data"]
		if !ok {
			return
		}
		zone["layers"] = []interface{}{
			map[string]interface{}{"z": 0, "data": data},
		}
		delete(zone, "data")
	})
}

// ForEachZone walks every zone map of every level section.
func ForEachZone(level map[string]interface{}, fn func(zone map[string]interface{})) {
	worlds, _ := level["world"].([]interface{})
	for _, w := range worlds {
		wm, ok := w.(map[string]interface{})
		if !ok {
			continue
		}
		zones, _ := wm["zone"].([]interface{})
		for _, z := range zones {
			if zm, ok := z.(map[string]interface{}); ok {
				fn(zm)
			}
		}
	}
}

// LayerZeroData returns the z=0 tile grid of a zone, post-migration.
func LayerZeroData(zone map[string]interface{}) ([]interface{}, bool) {
	layers, _ := zone["layers"].([]interface{})
	for _, l := range layers {
		lm, ok := l.(map[string]interface{})
		if !ok {
			continue
		}
		if Num(lm["z"]) != 0 {
			continue
		}
		if data, ok := lm["data"].([]interface{}); ok {
			return data, true
		}
	}
	return nil, false
}

// PlaceGoldFlower picks one random item block (tile id 17) across the z=0
// layers and rewrites its extra data to power-up type 100. Returns false if
// the level has no item blocks.
func PlaceGoldFlower(level map[string]interface{}) bool {
	type slot struct {
		rows []interface{}
		y, x int
	}
	var candidates []slot

	ForEachZone(level, func(zone map[string]interface{}) {
		rows, ok := LayerZeroData(zone)
		if !ok {
			return
		}
		for y, r := range rows {
			cols, ok := r.([]interface{})
			if !ok {
				continue
			}
			for x, c := range cols {
				if (Num(c)>>16)&0xff == 17 {
					candidates = append(candidates, slot{rows: rows, y: y, x: x})
				}
			}
		}
	})

	if len(candidates) == 0 {
		return false
	}
	s := candidates[rand.Intn(len(candidates))]
	cols := s.rows[s.y].([]interface{})
	tile := Num(cols[s.x])
	cols[s.x] = float64((tile & 0xffff) | (17 << 16) | (100 << 24))
	return true
}

// Num coerces a decoded JSON number to int. Non-numbers read as 0.
func Num(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	default:
		return 0
	}
}
