// internal/game/match_test.go
package game

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroyale/royaled/internal/config"
	"github.com/openroyale/royaled/internal/levels"
	"github.com/openroyale/royaled/internal/models"
	"github.com/openroyale/royaled/internal/protocol"
	"github.com/openroyale/royaled/internal/wordfilter"
)

type binFrame struct {
	code    byte
	payload []byte
}

// recConn records everything the match pushes at one connection.
type recConn struct {
	mu      sync.Mutex
	user    string
	bins    []binFrame
	texts   [][]byte
	jsons   []interface{}
	blocked bool
	closed  bool
	dc      []int
	indep   []int
	stops   int
	reasons []byte
}

func (c *recConn) SendJSON(v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jsons = append(c.jsons, v)
}

func (c *recConn) SendText(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, b)
}

func (c *recConn) SendBin(code byte, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bins = append(c.bins, binFrame{code, payload})
}

func (c *recConn) StartDCTimer(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dc = append(c.dc, seconds)
}

func (c *recConn) StartDCTimerIndependent(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indep = append(c.indep, seconds)
}

func (c *recConn) StopDCTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
}

func (c *recConn) Blocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocked
}

func (c *recConn) SetBlocked() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocked = true
}

func (c *recConn) BlockAddress(playerName string, reason byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons = append(c.reasons, reason)
}

func (c *recConn) SendClose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *recConn) Username() string { return c.user }

func (c *recConn) binsOf(code byte) []binFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []binFrame
	for _, f := range c.bins {
		if f.code == code {
			out = append(out, f)
		}
	}
	return out
}

func (c *recConn) lastBin(code byte) *binFrame {
	frames := c.binsOf(code)
	if len(frames) == 0 {
		return nil
	}
	return &frames[len(frames)-1]
}

func (c *recConn) jsonsSnapshot() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]interface{}, len(c.jsons))
	copy(out, c.jsons)
	return out
}

func (c *recConn) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bins = nil
	c.texts = nil
	c.jsons = nil
}

// fakeLevels serves fixed lobby and game levels as inline data.
type fakeLevels struct {
	lobby   map[string]interface{}
	game    map[string]interface{}
	named   map[string]map[string]interface{}
	entries []levels.Entry
	gameErr error
}

func (f *fakeLevels) GetLevel(name string) (string, map[string]interface{}, error) {
	if lv, ok := f.named[name]; ok {
		return "custom", lv, nil
	}
	return "custom", f.game, nil
}

func (f *fakeLevels) RandomLevel(levelType, mode string) (string, map[string]interface{}, error) {
	if levelType == "lobby" {
		return "custom", f.lobby, nil
	}
	if f.gameErr != nil {
		return "", nil, f.gameErr
	}
	return "custom", f.game, nil
}

func (f *fakeLevels) LevelList(levelType, mode string) []levels.Entry { return f.entries }

func (f *fakeLevels) HasLevel(name string) bool {
	_, ok := f.named[name]
	return ok
}

// testZone builds one zone: a height×width z=0 grid with the given tiles
// (keyed by x, top-down row) and object list.
func testZone(height, width int, tiles map[[2]int]int, objs ...[2]int) map[string]interface{} {
	data := make([]interface{}, height)
	for y := 0; y < height; y++ {
		row := make([]interface{}, width)
		for x := 0; x < width; x++ {
			row[x] = float64(0)
		}
		data[y] = row
	}
	for pos, v := range tiles {
		data[pos[1]].([]interface{})[pos[0]] = float64(v)
	}
	var objList []interface{}
	for _, o := range objs {
		objList = append(objList, map[string]interface{}{
			"pos":  float64(o[0]),
			"type": float64(o[1]),
		})
	}
	return map[string]interface{}{
		"obj": objList,
		"layers": []interface{}{
			map[string]interface{}{"z": float64(0), "data": data},
		},
	}
}

func testLevel(zones ...map[string]interface{}) map[string]interface{} {
	zs := make([]interface{}, len(zones))
	for i, z := range zones {
		zs[i] = z
	}
	return map[string]interface{}{
		"type": "game",
		"world": []interface{}{
			map[string]interface{}{"zone": zs},
		},
	}
}

func plainLevel() map[string]interface{} {
	return testLevel(testZone(10, 40, nil))
}

type matchEnv struct {
	t  *testing.T
	m  *Match
	s  *config.Settings
	lv *fakeLevels

	mu      sync.Mutex
	wins    []string
	emptied int
	results chan models.MatchResult
}

func newMatchEnv(t *testing.T, roomName string, private bool, gameMode string) *matchEnv {
	env := &matchEnv{
		t: t,
		s: &config.Settings{
			DefaultName:                     "MARIO",
			PlayerMin:                       10,
			PlayerCap:                       75,
			AutoStartTime:                   60,
			StartTimer:                      0,
			EnableVoteStart:                 true,
			VoteRateToStart:                 0.6,
			EnableLevelSelectInMultiPrivate: true,
			CoinRewardFlagpole:              500,
			CoinRewardPodium1:               200,
			CoinRewardPodium2:               100,
			CoinRewardPodium3:               50,
		},
		lv: &fakeLevels{
			lobby: plainLevel(),
			game:  plainLevel(),
			named: map[string]map[string]interface{}{},
		},
		results: make(chan models.MatchResult, 8),
	}
	env.m = NewMatch(roomName, private, gameMode, MatchDeps{
		Settings: func() *config.Settings { return env.s },
		Levels:   env.lv,
		Filter:   wordfilter.New([]string{"badword"}),
		OnEmpty: func(*Match) {
			env.mu.Lock()
			env.emptied++
			env.mu.Unlock()
		},
		AnnounceWin: func(name, mode string) {
			env.mu.Lock()
			env.wins = append(env.wins, name+"/"+mode)
			env.mu.Unlock()
		},
		PublishResult: func(r models.MatchResult) { env.results <- r },
	})
	return env
}

// join admits a guest and walks it through g00 and g03.
func (env *matchEnv) join(name string) (*Player, *recConn) {
	c := &recConn{}
	p := env.m.AddPlayer(c, name, "", 0, false)
	env.m.OnPlayerEnterIngame(p)
	env.m.OnPlayerLoadComplete(p)
	return p, c
}

// startRound force-starts and re-acks the world load for every player.
func (env *matchEnv) startRound(players ...*Player) {
	env.m.Start(true)
	for _, p := range players {
		env.m.OnPlayerLoadComplete(p)
	}
}

func (env *matchEnv) playing() bool {
	env.m.Mu.Lock()
	defer env.m.Mu.Unlock()
	return env.m.playing
}

func (env *matchEnv) isClosed() bool {
	env.m.Mu.Lock()
	defer env.m.Mu.Unlock()
	return env.m.closed
}

func updatePkt(level, zone int8, x, y float32, sprite int8) []byte {
	return protocol.NewWriter().Int8(level).Int8(zone).Vec2(x, y).Int8(sprite).Bool(false).Bytes()
}

func TestAddPlayerNamePipeline(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")

	cases := []struct {
		raw, team string
		isDev     bool
		skin      int16
		wantName  string
		wantSkin  int16
	}{
		{"mario", "", false, 3, "MARIO", 3},
		{"  luigi  the   green ", "", false, 0, "LUIGI THE GREEN", 0},
		{"mariö", "", false, 0, "MARI", 0},
		{"", "", false, 0, "MARIO", 0},
		{"badword", "abc", false, 0, "MARIO", 0}, // squadded curse wiped to default
		{"badword", "", false, 0, "BADWORD", 0},  // unsquadded names pass
		{"dev", "", true, 52, "DEV", 52},
		{"kid", "", false, 52, "KID", 0}, // reserved skin withheld
	}
	for i, tc := range cases {
		p := env.m.AddPlayer(&recConn{}, tc.raw, tc.team, tc.skin, tc.isDev)
		assert.Equal(t, tc.wantName, p.Name, "case %d name", i)
		assert.Equal(t, tc.wantSkin, p.Skin, "case %d skin", i)
		assert.Equal(t, int16(i), p.ID, "ids are dense and increasing")
	}
}

func TestSoloPrivateAutoStart(t *testing.T) {
	env := newMatchEnv(t, "", true, "royale")
	env.s.AutoStartTime = 1

	p, c := env.join("solo")
	require.False(t, env.playing(), "solo room idles in the lobby first")

	// The auto-start timer must arm even though the room is private: a
	// nameless private room is a solo session with a player minimum of 1.
	time.Sleep(1500 * time.Millisecond)
	require.True(t, env.playing(), "solo room should start on the auto-start timer")

	env.m.OnPlayerLoadComplete(p)
	time.Sleep(1200 * time.Millisecond) // countdown fires 1s after start
	assert.True(t, env.isClosed(), "zero start timer closes immediately")

	if f := c.lastBin(protocol.OpAssignPID); assert.NotNil(t, f) {
		assert.Equal(t, protocol.NewWriter().Int16(0).Int16(0).Bool(false).Bytes(), f.payload)
	}
}

func TestVoteStartThreshold(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")
	env.s.VoteRateToStart = 0.75

	players := make([]*Player, 4)
	for i := range players {
		players[i], _ = env.join(fmt.Sprintf("p%d", i))
	}
	env.m.CastVote(players[0])
	env.m.CastVote(players[1])
	require.False(t, env.playing(), "2 of 4 is under a 0.75 ratio")

	env.m.CastVote(players[1]) // duplicate vote must not count
	require.False(t, env.playing())

	env.m.CastVote(players[2])
	require.True(t, env.playing(), "3 of 4 meets a 0.75 ratio")
}

func TestRemovePlayerSettlesRoom(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")

	a, _ := env.join("a")
	b, cb := env.join("b")
	cThird, _ := env.join("c")
	d, _ := env.join("d")

	env.m.CastVote(a)
	env.m.CastVote(b)
	require.False(t, env.playing(), "2 of 4 under 0.6")

	cb.clear()
	env.m.RemovePlayer(cThird)
	require.True(t, env.playing(), "2 of 3 crosses 0.6 when a non-voter leaves")

	if f := cb.lastBin(protocol.OpKillPlayer); assert.NotNil(t, f, "survivors see the leaver die") {
		assert.Equal(t, protocol.NewWriter().Int16(cThird.ID).Bytes(), f.payload)
	}

	env.m.RemovePlayer(a)
	env.m.Mu.Lock()
	assert.Equal(t, 1, env.m.votes, "a leaver's vote is refunded")
	env.m.Mu.Unlock()

	env.m.RemovePlayer(b)
	env.m.RemovePlayer(d)
	env.mu.Lock()
	assert.Equal(t, 1, env.emptied, "OnEmpty fires once when the room drains")
	env.mu.Unlock()
}

func TestStartKeepsLobbyWhenResolveFails(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")
	env.lv.gameErr = fmt.Errorf("catalog empty")

	p, _ := env.join("a")
	env.m.Start(true)
	assert.False(t, env.playing(), "failed world resolve must not strand the room")

	env.lv.gameErr = nil
	env.m.Start(true)
	assert.True(t, env.playing())
	_ = p
}

func TestWarpNotifiesBothZones(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")
	a, ca := env.join("a")
	b, cb := env.join("b")
	c, cc := env.join("c")
	env.startRound(a, b, c)

	// Settle everyone: a and b in (1,0), c in (2,0).
	aPrev := updatePkt(1, 0, 10, 5, 0)
	env.m.HandleBinary(a, protocol.OpUpdatePlayer, aPrev)
	bPkt := updatePkt(1, 0, 11, 5, 0)
	env.m.HandleBinary(b, protocol.OpUpdatePlayer, bPkt)
	cPkt := updatePkt(2, 0, 3, 4, 0)
	env.m.HandleBinary(c, protocol.OpUpdatePlayer, cPkt)

	ca.clear()
	cb.clear()
	cc.clear()

	warp := updatePkt(2, 0, 1, 1, 0)
	env.m.HandleBinary(a, protocol.OpUpdatePlayer, warp)

	// The old zone learns the warper's new address stitched onto their last
	// known body bytes.
	f := cb.lastBin(protocol.OpUpdatePlayer)
	require.NotNil(t, f, "old-zone peer must hear the warp")
	want := protocol.NewWriter().Int16(a.ID).Int8(2).Int8(0).Raw(aPrev[2:]).Bytes()
	assert.Equal(t, want, f.payload)

	// The warper learns the destination zone's population.
	frames := ca.binsOf(protocol.OpUpdatePlayer)
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.NewWriter().Int16(c.ID).Raw(cPkt).Bytes(), frames[0].payload)

	// The destination zone gets the raw frame.
	fDest := cc.lastBin(protocol.OpUpdatePlayer)
	require.NotNil(t, fDest)
	assert.Equal(t, protocol.NewWriter().Int16(a.ID).Raw(warp).Bytes(), fDest.payload)
}

func TestUpdateDedupAndZoneScope(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")
	a, _ := env.join("a")
	b, cb := env.join("b")
	far, cFar := env.join("far")
	env.startRound(a, b, far)

	env.m.HandleBinary(b, protocol.OpUpdatePlayer, updatePkt(0, 0, 1, 1, 0))
	env.m.HandleBinary(far, protocol.OpUpdatePlayer, updatePkt(3, 0, 1, 1, 0))
	cb.clear()
	cFar.clear()

	pkt := updatePkt(0, 0, 20, 4, 1)
	env.m.HandleBinary(a, protocol.OpUpdatePlayer, pkt)
	env.m.HandleBinary(a, protocol.OpUpdatePlayer, pkt) // identical bytes

	assert.Len(t, cb.binsOf(protocol.OpUpdatePlayer), 1, "identical repeat is dropped")
	assert.Empty(t, cFar.binsOf(protocol.OpUpdatePlayer), "other zones hear nothing")
}

func TestWinnersSeeEveryZone(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")
	a, _ := env.join("a")
	w, cw := env.join("w")
	env.startRound(a, w)

	env.m.HandleBinary(w, protocol.OpUpdatePlayer, updatePkt(0, 0, 5, 5, 0))
	env.m.HandleBinary(w, protocol.OpResult, nil)
	require.True(t, w.Win)
	cw.clear()

	env.m.HandleBinary(a, protocol.OpUpdatePlayer, updatePkt(3, 1, 9, 9, 0))
	assert.Len(t, cw.binsOf(protocol.OpUpdatePlayer), 1, "podium players watch every zone")
}

func TestLobbySpriteBlocks(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")
	a, ca := env.join("a")
	_, cb := env.join("b")
	cb.clear()

	env.m.HandleBinary(a, protocol.OpUpdatePlayer, updatePkt(0, 0, 5, 5, 6))

	assert.True(t, ca.Blocked(), "sprite past fire flower in the lobby is a cheat")
	ca.mu.Lock()
	assert.Equal(t, []byte{blockReasonSprite}, ca.reasons)
	ca.mu.Unlock()
	if f := cb.lastBin(protocol.OpKillPlayer); assert.NotNil(t, f, "peers see the cheater die") {
		assert.Equal(t, protocol.NewWriter().Int16(a.ID).Bytes(), f.payload)
	}

	cb.clear()
	env.m.HandleBinary(a, protocol.OpUpdatePlayer, updatePkt(0, 0, 6, 5, 7))
	assert.Empty(t, cb.binsOf(protocol.OpKillPlayer), "a blocked player is not re-announced")
}

func TestEventInLobbyBlocks(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")
	a, ca := env.join("a")
	env.join("b")

	env.m.HandleBinary(a, protocol.OpPlayerEvent, []byte{1})
	assert.True(t, ca.Blocked())
	ca.mu.Lock()
	assert.Equal(t, []byte{blockReasonEvent}, ca.reasons)
	ca.mu.Unlock()
}

func TestLastPlayerImmuneToBlock(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")
	a, ca := env.join("a")

	env.m.HandleBinary(a, protocol.OpPlayerEvent, []byte{1})
	assert.False(t, ca.Blocked(), "a lone player cannot be blocked")
}

func TestTrustCounterBlocks(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")
	a, ca := env.join("a")
	env.join("b")

	for i := 0; i < trustAllowance; i++ {
		env.m.HandleBinary(a, protocol.OpTrustPing, nil)
	}
	assert.False(t, ca.Blocked(), "the allowance itself is tolerated")
	env.m.HandleBinary(a, protocol.OpTrustPing, nil)
	assert.True(t, ca.Blocked())
	ca.mu.Lock()
	assert.Equal(t, []byte{blockReasonTrust}, ca.reasons)
	ca.mu.Unlock()
}

func TestGoldFlowerReplayedToLateArrivals(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")
	a, _ := env.join("a")

	env.m.HandleBinary(a, protocol.OpObjectEvent,
		protocol.NewWriter().Int8(0).Int8(0).Int32(goldFlowerOID).Int8(0).Bytes())
	env.m.Mu.Lock()
	require.True(t, env.m.goldFlowerTaken)
	env.m.Mu.Unlock()

	_, cb := env.join("b")
	f := cb.lastBin(protocol.OpObjectEvent)
	require.NotNil(t, f, "new arrivals must learn the flower is gone")
	want := protocol.NewWriter().Int16(-1).Int8(0).Int8(0).Int32(goldFlowerOID).Int8(0).Bytes()
	assert.Equal(t, want, f.payload)
}

func TestReadyReplaysPeersAndTimer(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")
	a, _ := env.join("a")
	env.m.HandleBinary(a, protocol.OpCreatePlayer,
		protocol.NewWriter().Int8(0).Int8(0).Shor2(12, 7).Bytes())

	_, cb := env.join("b")
	f := cb.lastBin(protocol.OpCreatePlayer)
	require.NotNil(t, f, "lobby joiners get the standing population")
	assert.Equal(t, a.serializeObject(), f.payload)

	var roster *protocol.PlayerList
	for _, raw := range cb.texts {
		var batch struct {
			Packets []protocol.PlayerList `json:"packets"`
			Type    string                `json:"type"`
		}
		if err := json.Unmarshal(raw, &batch); err == nil && batch.Type == "s01" {
			for _, pk := range batch.Packets {
				if pk.Type == "g12" {
					roster = &pk
				}
			}
		}
	}
	require.NotNil(t, roster, "roster broadcast reaches the joiner")
	assert.Len(t, roster.Players, 2)
	assert.True(t, roster.Players[0].IsGuest)
	assert.Empty(t, roster.Players[0].Username, "guests never leak usernames to plain viewers")
}

func TestLobbyTickBroadcast(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")
	_, c := env.join("a")

	time.Sleep(1200 * time.Millisecond) // one tick interval
	var tick *protocol.Tick
	for _, v := range c.jsonsSnapshot() {
		if tk, ok := v.(protocol.Tick); ok {
			tick = &tk
		}
	}
	require.NotNil(t, tick, "lobby emits a 1 Hz tick")
	assert.Equal(t, "gtk", tick.Type)
	assert.Equal(t, 10, tick.MinPlayers)
	assert.Equal(t, 75, tick.MaxPlayers)
	assert.InDelta(t, 0.6, tick.VoteRateToStart, 0.001)
	assert.GreaterOrEqual(t, tick.Ticks, 0, "auto-start is armed for public rooms")
	assert.LessOrEqual(t, tick.Ticks, 60)
}

func TestSelectLevelPinsAndAnnounces(t *testing.T) {
	env := newMatchEnv(t, "room", true, "royale")
	env.lv.named["smb1-1"] = plainLevel()

	_, c := env.join("a")
	c.clear()

	require.True(t, env.m.SelectLevel("smb1-1"))
	require.False(t, env.m.SelectLevel("nope"), "unknown levels are refused")

	var sel *protocol.LevelSelectResult
	for _, v := range c.jsonsSnapshot() {
		if s, ok := v.(protocol.LevelSelectResult); ok {
			sel = &s
		}
	}
	require.NotNil(t, sel)
	assert.Equal(t, "smb1-1", sel.Name)
	assert.Equal(t, "update", sel.Status)

	env.m.Start(true)
	env.m.Mu.Lock()
	assert.Equal(t, "custom", env.m.world)
	env.m.Mu.Unlock()
}

func TestSelectCustomLevelValidates(t *testing.T) {
	env := newMatchEnv(t, "room", true, "royale")
	env.join("a")

	err := env.m.SelectCustomLevel("{not json")
	require.Error(t, err)

	raw, _ := json.Marshal(plainLevel())
	require.NoError(t, env.m.SelectCustomLevel(string(raw)))

	env.m.Start(true)
	env.m.Mu.Lock()
	assert.True(t, env.m.playing)
	assert.Equal(t, "custom", env.m.world)
	env.m.Mu.Unlock()
}

func TestPrivateRoomGetsLevelPicker(t *testing.T) {
	env := newMatchEnv(t, "room", true, "royale")
	env.lv.entries = []levels.Entry{{ShortID: "1-1", LongID: "smb1-1"}}

	_, c := env.join("a")
	var list *protocol.LevelList
	for _, v := range c.jsonsSnapshot() {
		if l, ok := v.(protocol.LevelList); ok {
			list = &l
		}
	}
	require.NotNil(t, list, "private rooms offer the level picker")
	require.Len(t, list.Levels, 1)
	assert.Equal(t, "smb1-1", list.Levels[0].LongID)
}

func TestHurryUpOnce(t *testing.T) {
	env := newMatchEnv(t, "", false, "royale")
	p, c := env.join("a")

	env.m.HurryUpPlayer(p, 180)
	env.m.HurryUpPlayer(p, 180)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, []int{210}, c.indep, "one independent deadline per player")
	var hurries int
	for _, v := range c.jsons {
		if _, ok := v.(protocol.HurryUp); ok {
			hurries++
		}
	}
	assert.Equal(t, 1, hurries)
}
