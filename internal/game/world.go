// internal/game/world.go
package game

import (
	"github.com/openroyale/royaled/internal/levels"
	"github.com/openroyale/royaled/internal/protocol"
)

// worldState is the server-authoritative index of the level in play:
// object tables, live coins, and the mutable tile grid. It is rebuilt from
// the prepared level copy on every world change. Tile mutations only touch
// these indices; the serialized level a late joiner receives is the
// start-of-round snapshot.
type worldState struct {
	// objects[level][zone] maps object id to object type.
	objects [][]map[int32]int
	// allcoins[level][zone] holds the ids of every coin object (type 97).
	allcoins [][]map[int32]bool
	// coins[level][zone] holds the ids not yet collected.
	coins [][]map[int32]bool
	// tiles[level][zone] is the z=0 grid, indexed [height-1-y][x].
	tiles [][][][]int
	// zoneHeight[level][zone] is the row count of the z=0 grid.
	zoneHeight [][]int
	// powerups maps a spawned power-up id to its type. Item-block hits key
	// this by x|(rawY<<16), the wire-level y rather than the flipped row
	// index. That mismatch is long-standing client-visible behavior.
	powerups map[int32]int
}

// initWorld rebuilds the indices from the prepared level copy. A nil level
// (built-in world names with no catalog) leaves every index empty, so the
// match runs with broadcast-only authority. Assumes lock is held.
func (m *Match) initWorld(level map[string]interface{}) {
	m.ws = worldState{powerups: make(map[int32]int)}
	if level == nil {
		return
	}

	worlds, _ := level["world"].([]interface{})
	for _, w := range worlds {
		wm, _ := w.(map[string]interface{})
		zones, _ := wm["zone"].([]interface{})

		var objs []map[int32]int
		var all, live []map[int32]bool
		var grids [][][]int
		var heights []int
		for _, z := range zones {
			zm, _ := z.(map[string]interface{})

			obj := make(map[int32]int)
			allc := make(map[int32]bool)
			livec := make(map[int32]bool)
			if list, ok := zm["obj"].([]interface{}); ok {
				for _, o := range list {
					om, ok := o.(map[string]interface{})
					if !ok {
						continue
					}
					oid := int32(levels.Num(om["pos"]))
					typ := levels.Num(om["type"])
					obj[oid] = typ
					if typ == 97 {
						allc[oid] = true
						livec[oid] = true
					}
				}
			}
			objs = append(objs, obj)
			all = append(all, allc)
			live = append(live, livec)

			grid := tileGrid(zm)
			grids = append(grids, grid)
			heights = append(heights, len(grid))
		}
		m.ws.objects = append(m.ws.objects, objs)
		m.ws.allcoins = append(m.ws.allcoins, all)
		m.ws.coins = append(m.ws.coins, live)
		m.ws.tiles = append(m.ws.tiles, grids)
		m.ws.zoneHeight = append(m.ws.zoneHeight, heights)
	}
}

// tileGrid copies a zone's z=0 layer into an int grid the match can mutate
// without touching the serialized level.
func tileGrid(zone map[string]interface{}) [][]int {
	rows, ok := levels.LayerZeroData(zone)
	if !ok {
		return nil
	}
	grid := make([][]int, len(rows))
	for y, r := range rows {
		cols, _ := r.([]interface{})
		row := make([]int, len(cols))
		for x, c := range cols {
			row[x] = levels.Num(c)
		}
		grid[y] = row
	}
	return grid
}

// getTile reads the tile code under a wire-level position. Out-of-range
// coordinates read as 0, which decodes to "no tile". Assumes lock is held.
func (m *Match) getTile(level, zone, x, y int) int {
	if level < 0 || level >= len(m.ws.tiles) {
		return 0
	}
	if zone < 0 || zone >= len(m.ws.tiles[level]) {
		return 0
	}
	grid := m.ws.tiles[level][zone]
	row := len(grid) - 1 - y
	if row < 0 || row >= len(grid) {
		return 0
	}
	if x < 0 || x >= len(grid[row]) {
		return 0
	}
	return grid[row][x]
}

// objectEventTrigger handles opcode 0x20: a player touched an object.
// Coins are awarded at most once per oid; everything else is relayed as-is.
// Assumes lock is held.
func (m *Match) objectEventTrigger(p *Player, payload []byte) {
	r := protocol.NewReader(payload)
	level, zone := int(r.Int8()), int(r.Int8())
	oid := r.Int32()
	r.Int8() // object type, client-informational

	if m.isLobby && oid == goldFlowerOID {
		m.goldFlowerTaken = true
	}

	if level >= 0 && level < len(m.ws.allcoins) && zone >= 0 && zone < len(m.ws.allcoins[level]) {
		if m.ws.allcoins[level][zone][oid] {
			live := m.ws.coins[level][zone]
			if !live[oid] {
				return // already collected, swallow the echo too
			}
			p.addCoin()
			delete(live, oid)
		}
	}

	if typ, ok := m.ws.powerups[oid]; ok {
		if typ == goldFlowerType {
			p.addLeaderBoardCoins(goldFlowerReward)
		}
		delete(m.ws.powerups, oid)
	}

	m.broadBin(protocol.OpObjectEvent, protocol.NewWriter().Int16(p.ID).Raw(payload).Bytes())
}

// tileEventTrigger handles opcode 0x30: a player hit a tile. Coin and item
// blocks mutate the authoritative grid; the event is relayed either way.
// Assumes lock is held.
func (m *Match) tileEventTrigger(p *Player, payload []byte) {
	r := protocol.NewReader(payload)
	level, zone := int(r.Int8()), int(r.Int8())
	rawX, rawY := r.Shor2()
	r.Int8() // event type, client-informational

	if level >= 0 && level < len(m.ws.tiles) && zone >= 0 && zone < len(m.ws.tiles[level]) {
		grid := m.ws.tiles[level][zone]
		y := m.ws.zoneHeight[level][zone] - 1 - int(rawY)
		x := int(rawX)
		if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[y]) {
			tile := grid[y][x]
			id := (tile >> 16) & 0xff
			extra := (tile >> 24) & 0xff
			switch id {
			case 18, 22: // coin block, hidden coin block
				p.addCoin()
				grid[y][x] = emptyBlockTile
			case 19: // multi-coin block
				if extra > 1 {
					p.addCoin()
					grid[y][x] = (tile & 0xffffff) | ((extra - 1) << 24)
				} else {
					if extra == 1 {
						p.addCoin()
					}
					grid[y][x] = emptyBlockTile
				}
			case 17: // item block: spawn a power-up keyed by the raw position
				m.ws.powerups[int32(rawX)|int32(rawY)<<16] = extra
				grid[y][x] = emptyBlockTile
			}
		}
	}

	m.broadBin(protocol.OpTileEvent, protocol.NewWriter().Int16(p.ID).Raw(payload).Bytes())
}
