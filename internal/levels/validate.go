package levels

import (
	"encoding/json"
	"fmt"
)

// Validate checks the structure the server relies on for tile and object
// authority. Anything beyond that is the client's business.
func Validate(level map[string]interface{}) error {
	if _, ok := level["type"].(string); !ok {
		return fmt.Errorf("missing level type")
	}
	worlds, ok := level["world"].([]interface{})
	if !ok || len(worlds) == 0 {
		return fmt.Errorf("missing world list")
	}
	for wi, w := range worlds {
		wm, ok := w.(map[string]interface{})
		if !ok {
			return fmt.Errorf("world %d is not an object", wi)
		}
		zones, ok := wm["zone"].([]interface{})
		if !ok || len(zones) == 0 {
			return fmt.Errorf("world %d has no zones", wi)
		}
		for zi, z := range zones {
			zm, ok := z.(map[string]interface{})
			if !ok {
				return fmt.Errorf("world %d zone %d is not an object", wi, zi)
			}
			if err := validateZone(zm); err != nil {
				return fmt.Errorf("world %d zone %d: %w", wi, zi, err)
			}
		}
	}
	return nil
}

func validateZone(zone map[string]interface{}) error {
	data, hasData := zone["data"].([]interface{})
	if !hasData {
		layers, ok := zone["layers"].([]interface{})
		if !ok || len(layers) == 0 {
			return fmt.Errorf("no tile data")
		}
		found := false
		for _, l := range layers {
			lm, ok := l.(map[string]interface{})
			if !ok {
				return fmt.Errorf("layer is not an object")
			}
			d, ok := lm["data"].([]interface{})
			if !ok {
				return fmt.Errorf("layer has no data")
			}
			if Num(lm["z"]) == 0 {
				found = true
				data = d
			}
		}
		if !found {
			return fmt.Errorf("no z=0 layer")
		}
	}
	if len(data) == 0 {
		return fmt.Errorf("empty tile grid")
	}
	for y, r := range data {
		row, ok := r.([]interface{})
		if !ok || len(row) == 0 {
			return fmt.Errorf("row %d is not a tile row", y)
		}
		for x, c := range row {
			if _, ok := c.(float64); !ok {
				return fmt.Errorf("tile %d,%d is not a number", x, y)
			}
		}
	}
	if objs, ok := zone["obj"]; ok {
		list, ok := objs.([]interface{})
		if !ok {
			return fmt.Errorf("obj is not a list")
		}
		for i, o := range list {
			om, ok := o.(map[string]interface{})
			if !ok {
				return fmt.Errorf("obj %d is not an object", i)
			}
			if _, ok := om["pos"].(float64); !ok {
				return fmt.Errorf("obj %d has no pos", i)
			}
			if _, ok := om["type"].(float64); !ok {
				return fmt.Errorf("obj %d has no type", i)
			}
		}
	}
	return nil
}

// ParseCustom decodes and validates an inline custom level.
func ParseCustom(raw string) (map[string]interface{}, error) {
	var level map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &level); err != nil {
		return nil, fmt.Errorf("parse level: %w", err)
	}
	if err := Validate(level); err != nil {
		return nil, err
	}
	return level, nil
}
