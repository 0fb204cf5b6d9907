// internal/game/match.go
package game

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/openroyale/royaled/internal/config"
	"github.com/openroyale/royaled/internal/levels"
	"github.com/openroyale/royaled/internal/models"
	"github.com/openroyale/royaled/internal/protocol"
	"github.com/openroyale/royaled/internal/wordfilter"
)

// Block reason codes recorded to the address blocklist.
const (
	blockReasonSprite = 0x1
	blockReasonEvent  = 0x2
	blockReasonTrust  = 0x3
	blockReasonBan    = 0x4
)

const (
	trustAllowance = 8
	killReward     = 10

	// The lobby gold flower's object id, x=9 y=7 on the wire.
	goldFlowerOID    int32 = 458761
	goldFlowerType         = 100
	goldFlowerReward       = 50000

	// An exhausted block's tile code.
	emptyBlockTile = 98331
)

// LevelProvider resolves world names to level data. The handlers server
// implements it over the level catalog, falling back to built-in world
// names when no catalog directory is present.
type LevelProvider interface {
	// GetLevel resolves a named level to its world tag and data.
	GetLevel(name string) (string, map[string]interface{}, error)
	// RandomLevel picks a world of the given type ("lobby", "game", "jail",
	// "maintenance"); mode filters game worlds and is ignored otherwise.
	RandomLevel(levelType, mode string) (string, map[string]interface{}, error)
	// LevelList enumerates selectable levels, sorted by short id.
	LevelList(levelType, mode string) []levels.Entry
	// HasLevel reports whether a named level exists.
	HasLevel(name string) bool
}

// MatchDeps are the server-side services a match calls out to.
type MatchDeps struct {
	// Settings returns the current live config snapshot.
	Settings func() *config.Settings
	Levels   LevelProvider
	// Filter censors curse names in win announcements. May be nil.
	Filter *wordfilter.Filter
	// OnEmpty runs once, off-lock, after the last player leaves. May be nil.
	OnEmpty func(*Match)
	// AnnounceWin is called under the match lock and must return promptly.
	// May be nil.
	AnnounceWin func(name, mode string)
	// PublishResult receives one record per finished round, invoked on its
	// own goroutine. May be nil.
	PublishResult func(models.MatchResult)
}

// Match is one game room: its roster, world state, and lifecycle timers.
// Public methods lock Mu; methods suffixed Locked and the handle* helpers
// assume the caller holds it.
type Match struct {
	Mu sync.Mutex

	ID       uuid.UUID
	RoomName string
	Private  bool
	GameMode string

	deps MatchDeps

	players []*Player
	lastID  int16

	isLobby bool
	world   string
	playing bool
	closed  bool
	stopped bool

	levelMode   string
	forceLevel  string
	usingCustom bool
	customData  map[string]interface{}
	loadMsg     []byte

	ws              worldState
	goldFlowerTaken bool

	startTimer int
	votes      int
	winners    int

	autoStartTimer *time.Timer
	autoStartAt    time.Time
	tickTimer      *time.Timer
	countdown      *time.Timer
}

// NewMatch creates a room idling in its lobby world.
func NewMatch(roomName string, private bool, gameMode string, deps MatchDeps) *Match {
	id, _ := uuid.NewRandom()
	levelMode := gameMode
	if levelMode == "pvp" {
		// PvP rounds run on the royale level pool.
		levelMode = "royale"
	}
	m := &Match{
		ID:        id,
		RoomName:  roomName,
		Private:   private,
		GameMode:  gameMode,
		levelMode: levelMode,
		deps:      deps,
		isLobby:   true,
		lastID:    -1,
	}
	world, data, err := deps.Levels.RandomLevel("lobby", "")
	if err != nil {
		logrus.Warnf("match %s: no lobby world: %v", id, err)
		world, data = "lobby", nil
	}
	m.applyWorldLocked(world, data)
	return m
}

// applyWorldLocked installs a new world: prepares the serving copy, caches
// the g01 frame, and rebuilds the authority indices. During a round start
// of a non-private royale match the copy also gets the hidden gold flower.
// Assumes lock is held.
func (m *Match) applyWorldLocked(world string, data map[string]interface{}) {
	prepared := data
	if data != nil {
		prepared = levels.CopyLevel(data)
		levels.MigrateLayers(prepared)
		if m.playing && !m.Private && m.GameMode == "royale" {
			levels.PlaceGoldFlower(prepared)
		}
	}
	m.world = world
	m.loadMsg = buildLoadMsg(world, prepared)
	m.initWorld(prepared)
}

// buildLoadMsg serializes the world load frame once; every enter and the
// start broadcast reuse the same bytes.
func buildLoadMsg(world string, level map[string]interface{}) []byte {
	load := protocol.WorldLoad{Game: world, Type: "g01"}
	if world == "custom" {
		raw, _ := json.Marshal(level)
		load.LevelData = string(raw)
	}
	b, _ := json.Marshal(protocol.NewBatch(load))
	return b
}

// AddPlayer admits a connection as a fresh player. The display name is
// sanitized, squadded curse names are wiped to the default, and the
// reserved skin is withheld from non-devs.
func (m *Match) AddPlayer(conn ClientConn, rawName, team string, skin int16, isDev bool) *Player {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	name := wordfilter.SanitizeName(rawName)
	if team != "" && !isDev && m.deps.Filter != nil && m.deps.Filter.Match(name) {
		name = ""
	}
	if name == "" {
		name = m.deps.Settings().DefaultName
	}
	if !isDev && skin == 52 {
		skin = 0
	}

	m.lastID++
	p := &Player{
		ID:       m.lastID,
		Name:     name,
		Team:     team,
		Skin:     skin,
		IsDev:    isDev,
		Username: conn.Username(),
		match:    m,
		conn:     conn,
		Dead:     true,
	}
	m.players = append(m.players, p)
	return p
}

// RemovePlayer takes a player out of the roster and settles the room:
// survivors learn of the death, the list refreshes, and the vote ledger is
// rebalanced. The OnEmpty callback fires after the lock is released so the
// store can drop the match without a lock-order inversion.
func (m *Match) RemovePlayer(p *Player) {
	m.Mu.Lock()
	empty := m.removePlayerLocked(p)
	m.Mu.Unlock()
	if empty && m.deps.OnEmpty != nil {
		m.deps.OnEmpty(m)
	}
}

// Assumes lock is held.
func (m *Match) removePlayerLocked(p *Player) (empty bool) {
	idx := -1
	for i, q := range m.players {
		if q == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	m.players = append(m.players[:idx], m.players[idx+1:]...)

	if len(m.players) == 0 {
		m.stopped = true
		m.stopTimersLocked()
		return true
	}

	if !p.Dead && !p.Win {
		// Podium players stay on screen; everyone else dies on leave.
		m.broadBin(protocol.OpKillPlayer, protocol.NewWriter().Int16(p.ID).Bytes())
	}
	m.broadPlayerList()

	if p.Voted {
		m.votes--
	} else if m.voteThresholdMetLocked() {
		// The leaver may have been the one holding the ratio down.
		m.startLocked(false)
	}
	return false
}

// Assumes lock is held.
func (m *Match) stopTimersLocked() {
	if m.autoStartTimer != nil {
		m.autoStartTimer.Stop()
		m.autoStartTimer = nil
	}
	if m.tickTimer != nil {
		m.tickTimer.Stop()
		m.tickTimer = nil
	}
	if m.countdown != nil {
		m.countdown.Stop()
		m.countdown = nil
	}
}

// Assumes lock is held.
func (m *Match) getPlayerLocked(pid int16) *Player {
	for _, p := range m.players {
		if p.ID == pid {
			return p
		}
	}
	return nil
}

// PlayerCount reports the current roster size.
func (m *Match) PlayerCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.players)
}

// nextWinner hands out podium positions in finish order. Assumes lock is held.
func (m *Match) nextWinner() int {
	m.winners++
	return m.winners
}

// broadJSON sends v to every loaded player. Assumes lock is held.
func (m *Match) broadJSON(v interface{}) {
	for _, p := range m.players {
		if !p.Loaded {
			continue
		}
		p.conn.SendJSON(v)
	}
}

// broadBin sends a binary frame to every loaded player. Assumes lock is held.
func (m *Match) broadBin(code byte, payload []byte) {
	for _, p := range m.players {
		if !p.Loaded {
			continue
		}
		p.conn.SendBin(code, payload)
	}
}

// broadBinExcept is broadBin minus one player. Assumes lock is held.
func (m *Match) broadBinExcept(code byte, payload []byte, except int16) {
	for _, p := range m.players {
		if !p.Loaded || p.ID == except {
			continue
		}
		p.conn.SendBin(code, payload)
	}
}

// broadLoadWorld pushes the cached world frame at everyone, loaded or not;
// each recipient goes back to the loading screen. Assumes lock is held.
func (m *Match) broadLoadWorld() {
	for _, p := range m.players {
		p.loadWorld(m.world, m.loadMsg)
	}
}

// broadStartTimerLocked runs the pre-round countdown: every second each
// loaded player gets the remaining time in 30ths, and at zero the match
// closes to rendering of the lobby roster. Assumes lock is held.
func (m *Match) broadStartTimerLocked(n int) {
	m.startTimer = n * 30
	for _, p := range m.players {
		if !p.Loaded {
			continue
		}
		p.setStartTimer(m.startTimer)
	}
	if n > 0 {
		m.countdown = time.AfterFunc(time.Second, func() {
			m.Mu.Lock()
			defer m.Mu.Unlock()
			if m.stopped {
				return
			}
			m.broadStartTimerLocked(n - 1)
		})
	} else {
		m.closed = true
	}
}

// broadPlayerList refreshes the lobby roster. Two payloads are serialized,
// one with account usernames for dev viewers and one without, each exactly
// once. Assumes lock is held.
func (m *Match) broadPlayerList() {
	if m.closed {
		return
	}
	// Unloaded players stay in the roster data; the remaining-player count
	// only updates on the start timer screen.
	plain := make([]protocol.PlayerInfo, 0, len(m.players))
	dev := make([]protocol.PlayerInfo, 0, len(m.players))
	for _, p := range m.players {
		plain = append(plain, p.simpleData(false))
		dev = append(dev, p.simpleData(true))
	}
	plainMsg, _ := json.Marshal(protocol.NewBatch(protocol.PlayerList{Players: plain, Type: "g12"}))
	devMsg, _ := json.Marshal(protocol.NewBatch(protocol.PlayerList{Players: dev, Type: "g12"}))

	for _, p := range m.players {
		if !p.Loaded {
			continue
		}
		if p.IsDev {
			p.conn.SendText(devMsg)
		} else {
			p.conn.SendText(plainMsg)
		}
	}
}

// broadPlayerUpdate fans a movement frame out to the sender's zone.
// Podium winners watch the whole map. Assumes lock is held.
func (m *Match) broadPlayerUpdate(p *Player, payload []byte) {
	data := protocol.NewWriter().Int16(p.ID).Raw(payload).Bytes()
	for _, q := range m.players {
		if !q.Loaded || q.ID == p.ID {
			continue
		}
		if !q.Win && (q.Level != p.Level || q.Zone != p.Zone) {
			continue
		}
		q.conn.SendBin(protocol.OpUpdatePlayer, data)
	}
}

// onPlayerWarpLocked announces a zone change to both sides before the
// player's position fields move: the old zone sees the warper leave toward
// the new address, the warper learns the destination's population. The new
// zone itself hears the raw frame through the regular fan-out afterwards.
// Assumes lock is held.
func (m *Match) onPlayerWarpLocked(p *Player, level, zone int8) {
	for _, q := range m.players {
		if !q.Loaded || q == p {
			continue
		}
		if q.Level == p.Level && q.Zone == p.Zone && p.lastUpdate != nil {
			q.conn.SendBin(protocol.OpUpdatePlayer, protocol.NewWriter().
				Int16(p.ID).Int8(level).Int8(zone).Raw(p.lastUpdate[2:]).Bytes())
		}
		if q.Level == level && q.Zone == zone && q.lastUpdate != nil {
			p.conn.SendBin(protocol.OpUpdatePlayer, protocol.NewWriter().
				Int16(q.ID).Raw(q.lastUpdate).Bytes())
		}
	}
}

// RefusesBinary reports whether inbound binary frames from p should be
// dropped right now: before the client has acknowledged the world load, and
// during the pre-round countdown window between start and close.
func (m *Match) RefusesBinary(p *Player) bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return !p.Loaded || (m.playing && !m.closed)
}

// OnPlayerEnterIngame handles g00: push the current world at the player
// and, in private rooms, the level picker.
func (m *Match) OnPlayerEnterIngame(p *Player) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if !p.Dead {
		return
	}
	p.Lobbier = m.isLobby
	p.loadWorld(m.world, m.loadMsg)

	s := m.deps.Settings()
	if m.Private && (s.EnableLevelSelectInMultiPrivate || p.Team == "") {
		m.sendLevelSelectLocked(p)
	}
}

// Assumes lock is held.
func (m *Match) sendLevelSelectLocked(p *Player) {
	list := m.deps.Levels.LevelList("game", m.levelMode)
	entries := make([]protocol.LevelEntry, 0, len(list))
	for _, e := range list {
		entries = append(entries, protocol.LevelEntry{ShortID: e.ShortID, LongID: e.LongID})
	}
	p.conn.SendJSON(protocol.LevelList{Type: "gll", Levels: entries})
}

// OnPlayerLoadComplete handles g03: the client finished building the world,
// so reset the player to the spawn, hand them their pid, and run the ready
// path.
func (m *Match) OnPlayerLoadComplete(p *Player) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if p.Loaded || p.pendingWorld == "" {
		return
	}
	p.conn.StopDCTimer()

	p.Lobbier = m.isLobby
	p.Level, p.Zone = 0, 0
	p.PosX, p.PosY = 35, 3
	p.Win = false
	p.Dead = false
	p.Loaded = true
	p.pendingWorld = ""
	p.flagTouched = false

	p.conn.SendBin(protocol.OpAssignPID,
		protocol.NewWriter().Int16(p.ID).Int16(p.Skin).Bool(p.IsDev).Bytes())

	m.onPlayerReadyLocked(p)
}

// onPlayerReadyLocked settles a freshly loaded player into the room:
// (re)arm auto-start, replay room state they missed, and check whether
// their arrival satisfies a start condition. Assumes lock is held.
func (m *Match) onPlayerReadyLocked(p *Player) {
	s := m.deps.Settings()

	if !m.playing && m.autoStartEligibleLocked(s) {
		d := time.Duration(s.AutoStartTime) * time.Second
		if m.autoStartTimer != nil {
			m.autoStartTimer.Reset(d)
		} else {
			m.autoStartTimer = time.AfterFunc(d, m.autoStartFire)
		}
		m.autoStartAt = time.Now().Add(d)
	}
	m.ensureTickLocked()

	if m.isLobby && m.goldFlowerTaken {
		// Replay the pickup so the new arrival doesn't see a ghost flower.
		m.broadBin(protocol.OpObjectEvent, protocol.NewWriter().
			Int16(-1).Int8(0).Int8(0).Int32(goldFlowerOID).Int8(0).Bytes())
	}

	if m.isLobby || !p.Lobbier || m.closed {
		for _, q := range m.players {
			if !q.Loaded || q == p {
				continue
			}
			p.conn.SendBin(protocol.OpCreatePlayer, q.serializeObject())
		}
		if m.startTimer != 0 || m.closed {
			p.setStartTimer(m.startTimer)
		}
	}
	m.broadPlayerList()

	if !m.playing {
		if len(m.players) >= s.PlayerCap {
			m.startLocked(true)
		} else if m.voteThresholdMetLocked() {
			m.startLocked(false)
		}
	}
}

// autoStartEligibleLocked reports whether this room starts on a timer:
// every public room, every solo-private room, and multi-private rooms only
// when enabled. Assumes lock is held.
func (m *Match) autoStartEligibleLocked(s *config.Settings) bool {
	return !m.Private || m.RoomName == "" || s.EnableAutoStartInMultiPrivate
}

func (m *Match) autoStartFire() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.stopped || m.playing {
		return
	}
	m.startLocked(true)
}

// ensureTickLocked keeps the 1 Hz lobby tick running while the room waits.
// Assumes lock is held.
func (m *Match) ensureTickLocked() {
	if m.tickTimer != nil || m.playing {
		return
	}
	m.tickTimer = time.AfterFunc(time.Second, m.tickFire)
}

func (m *Match) tickFire() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.stopped || m.playing || len(m.players) == 0 {
		m.tickTimer = nil
		return
	}
	s := m.deps.Settings()
	ticks := -1
	if m.autoStartTimer != nil {
		ticks = 0
		if rem := time.Until(m.autoStartAt); rem > 0 {
			ticks = int(rem.Round(time.Second) / time.Second)
		}
	}
	m.broadJSON(protocol.Tick{
		Type:            "gtk",
		Ticks:           ticks,
		Votes:           m.votes,
		MinPlayers:      m.contextualMinLocked(s),
		MaxPlayers:      s.PlayerCap,
		VoteRateToStart: s.VoteRateToStart,
	})
	m.tickTimer.Reset(time.Second)
}

// Assumes lock is held.
func (m *Match) contextualMinLocked(s *config.Settings) int {
	if m.Private && m.RoomName == "" {
		return 1
	}
	return s.PlayerMin
}

// Assumes lock is held.
func (m *Match) voteThresholdMetLocked() bool {
	s := m.deps.Settings()
	return s.EnableVoteStart && !m.playing &&
		float64(m.votes) >= float64(len(m.players))*s.VoteRateToStart
}

// CastVote registers a start vote. Repeat votes and votes after the round
// began are dropped.
func (m *Match) CastVote(p *Player) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if p.Voted || m.playing {
		return
	}
	p.Voted = true
	m.votes++
	if m.voteThresholdMetLocked() {
		m.startLocked(false)
	}
}

// Start begins the round, subject to the player minimum unless forced.
func (m *Match) Start(forced bool) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.startLocked(forced)
}

// Assumes lock is held.
func (m *Match) startLocked(forced bool) {
	if m.playing {
		return
	}
	s := m.deps.Settings()
	if !forced && len(m.players) < m.contextualMinLocked(s) {
		return
	}

	// Resolve the next world before flipping any state, so a failed pick
	// leaves the lobby running.
	var (
		world string
		data  map[string]interface{}
		err   error
	)
	switch {
	case m.usingCustom:
		world, data = "custom", m.customData
	case m.forceLevel != "":
		world, data, err = m.deps.Levels.GetLevel(m.forceLevel)
	default:
		world, data, err = m.deps.Levels.RandomLevel("game", m.levelMode)
	}
	if err != nil {
		logrus.Warnf("match %s: start aborted, world resolve: %v", m.ID, err)
		return
	}

	m.playing = true
	m.isLobby = false
	m.stopTimersLocked()

	m.applyWorldLocked(world, data)
	m.broadLoadWorld()

	startIn := s.StartTimer
	m.countdown = time.AfterFunc(time.Second, func() {
		m.Mu.Lock()
		defer m.Mu.Unlock()
		if m.stopped {
			return
		}
		m.broadStartTimerLocked(startIn)
	})
}

// SelectLevel pins the next round to a named catalog level; an empty name
// clears the pin. Unknown names are ignored.
func (m *Match) SelectLevel(name string) bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if name != "" && !m.deps.Levels.HasLevel(name) {
		return false
	}
	m.forceLevel = name
	m.usingCustom = false
	m.broadLevelSelectLocked()
	return true
}

// SelectCustomLevel validates an uploaded level and pins the next round to
// it.
func (m *Match) SelectCustomLevel(raw string) error {
	lk, err := levels.ParseCustom(raw)
	if err != nil {
		return err
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.usingCustom = true
	m.forceLevel = "custom"
	m.customData = lk
	m.broadLevelSelectLocked()
	return nil
}

// broadLevelSelectLocked announces the current pin to the whole room,
// loading or not. Assumes lock is held.
func (m *Match) broadLevelSelectLocked() {
	msg := protocol.LevelSelectResult{Type: "gsl", Name: m.forceLevel, Status: "update"}
	for _, p := range m.players {
		p.conn.SendJSON(msg)
	}
}

// HandleBinary applies one complete binary packet from p. The caller has
// already validated the opcode and payload length and must hand over
// ownership of payload.
func (m *Match) HandleBinary(p *Player, code byte, payload []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	switch code {
	case protocol.OpCreatePlayer:
		p.handleCreate(payload)
	case protocol.OpKillPlayer:
		p.handleKill()
	case protocol.OpUpdatePlayer:
		p.handleUpdate(payload)
	case protocol.OpPlayerEvent:
		p.handleEvent(payload)
	case protocol.OpKillClaim:
		p.handleKillClaim(payload)
	case protocol.OpResult:
		p.handleResult()
	case protocol.OpTrustPing:
		p.handleTrust()
	case protocol.OpObjectEvent:
		if p.Dead {
			return
		}
		m.objectEventTrigger(p, payload)
	case protocol.OpTileEvent:
		if p.Dead {
			return
		}
		m.tileEventTrigger(p, payload)
	}
}

// blockPlayerLocked marks a cheater: their input is dropped from here on,
// everyone else sees them die, and the address lands on the blocklist.
// The last player of a room is left alone so a misfire cannot empty it.
// Assumes lock is held.
func (m *Match) blockPlayerLocked(p *Player, reason byte) {
	if p.conn.Blocked() || len(m.players) == 1 {
		return
	}
	p.conn.SetBlocked()
	if !p.Dead {
		m.broadBinExcept(protocol.OpKillPlayer, protocol.NewWriter().Int16(p.ID).Bytes(), p.ID)
	}
	p.conn.BlockAddress(p.Name, reason)
}

// recordWinLocked publishes a round victory: the Discord shout for public
// rooms and the result record for the historian. Assumes lock is held.
func (m *Match) recordWinLocked(p *Player) {
	name := p.Name
	if p.Team == "" && !p.IsDev && m.deps.Filter != nil && m.deps.Filter.Match(name) {
		name = "[ censored ]"
	}
	if !m.Private && m.deps.AnnounceWin != nil {
		m.deps.AnnounceWin(name, m.GameMode)
	}
	if m.deps.PublishResult != nil {
		res := models.MatchResult{
			MatchID:     m.ID,
			World:       m.world,
			Mode:        m.GameMode,
			Private:     m.Private,
			WinnerName:  p.Name,
			WinnerUser:  p.Username,
			PlayerCount: len(m.players),
			FinishedAt:  time.Now().UTC(),
		}
		go m.deps.PublishResult(res)
	}
}

// BanPlayer kicks a player by id, optionally blocking them.
func (m *Match) BanPlayer(pid int, ban bool) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if p := m.getPlayerLocked(int16(pid)); p != nil {
		p.ban(ban)
	}
}

// RenamePlayer force-renames a player by id and announces it.
func (m *Match) RenamePlayer(pid int, name string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	p := m.getPlayerLocked(int16(pid))
	if p == nil {
		return
	}
	p.rename(name)
	m.broadJSON(protocol.Renamed{Type: "gnm", PID: p.ID, Name: name})
	m.broadPlayerList()
}

// ResquadPlayer moves a player to another squad tag. The rename flag makes
// the close-time flush persist the new tag.
func (m *Match) ResquadPlayer(pid int, team string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	p := m.getPlayerLocked(int16(pid))
	if p == nil {
		return
	}
	p.Team = team
	p.ForceRenamed = true
	m.broadPlayerList()
}

// HurryUpPlayer puts one player on a finish deadline. The shutdown drain
// calls this for every live connection.
func (m *Match) HurryUpPlayer(p *Player, seconds int) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	p.hurryUp(seconds)
}
