// internal/game/player.go
package game

import (
	"bytes"

	"github.com/openroyale/royaled/internal/models"
	"github.com/openroyale/royaled/internal/protocol"
)

// Player is one participant in a match, bound to a websocket connection.
// Every mutable field is guarded by the owning match's Mu; the conn methods
// are safe to call from anywhere and never block.
type Player struct {
	ID    int16
	Name  string
	Team  string
	Skin  int16
	IsDev bool
	// Username is the account name, empty for guests.
	Username string

	match *Match
	conn  ClientConn

	Level int8
	Zone  int8
	PosX  float32
	PosY  float32

	Dead   bool
	Win    bool
	Voted  bool
	Loaded bool
	// Lobbier marks a player who entered during the lobby phase; stat and
	// coin accrual is suspended for lobbiers.
	Lobbier      bool
	ForceRenamed bool

	flagTouched  bool
	hurryingUp   bool
	trustCount   int
	pendingWorld string
	lastUpdate   []byte

	Wins   int
	Deaths int
	Kills  int
	Coins  int
}

// StatsDelta snapshots the player's session accrual for the account flush.
// Call after the player has left the match; nothing mutates it then.
func (p *Player) StatsDelta() models.StatsDelta {
	return models.StatsDelta{Wins: p.Wins, Deaths: p.Deaths, Kills: p.Kills, Coins: p.Coins}
}

// simpleData renders one roster row. Dev viewers also see the account
// username behind each display name. Assumes lock is held.
func (p *Player) simpleData(devViewer bool) protocol.PlayerInfo {
	info := protocol.PlayerInfo{
		ID:      p.ID,
		Name:    p.Name,
		Team:    p.Team,
		IsDev:   p.IsDev,
		IsGuest: p.Username == "",
	}
	if devViewer {
		info.Username = p.Username
	}
	return info
}

// serializeObject encodes the 0x10 body for this player. Assumes lock is held.
func (p *Player) serializeObject() []byte {
	return protocol.NewWriter().
		Int16(p.ID).
		Int8(p.Level).
		Int8(p.Zone).
		Shor2(uint16(p.PosX), uint16(p.PosY)).
		Int16(p.Skin).
		Bool(p.IsDev).
		Bytes()
}

// loadWorld pushes the pre-serialized g01 frame and rearms the load
// deadline. The player is dead and unloaded until the client acknowledges
// with g03. Assumes lock is held.
func (p *Player) loadWorld(world string, loadMsg []byte) {
	p.Dead = true
	p.Loaded = false
	p.pendingWorld = world
	p.conn.SendText(loadMsg)
	p.conn.StartDCTimer(15)
}

// setStartTimer pushes the remaining countdown in 30ths of a second.
// Assumes lock is held.
func (p *Player) setStartTimer(ticks int) {
	p.conn.SendJSON(protocol.NewBatch(protocol.StartTimer{Time: ticks, Type: "g13"}))
}

// handleCreate spawns the player object at the client-chosen position and
// announces it. Assumes lock is held.
func (p *Player) handleCreate(payload []byte) {
	r := protocol.NewReader(payload)
	p.Level = r.Int8()
	p.Zone = r.Int8()
	x, y := r.Shor2()
	p.PosX, p.PosY = float32(x), float32(y)

	p.Dead = false
	p.conn.StopDCTimer()
	p.match.broadBin(protocol.OpCreatePlayer, p.serializeObject())
}

// handleKill processes a death report: the player loses 10 leaderboard
// coins and has 60 seconds to respawn before the connection is dropped.
// Assumes lock is held.
func (p *Player) handleKill() {
	if p.Dead || p.Win {
		return
	}
	p.Dead = true
	p.conn.StartDCTimer(60)

	p.addDeath()
	p.match.broadBin(protocol.OpKillPlayer, protocol.NewWriter().Int16(p.ID).Bytes())
	p.addLeaderBoardCoins(-10)
}

// handleUpdate processes a movement frame: warp detection, flagpole reward,
// lobby sprite policing, then fan-out to the player's zone. Identical
// repeats are dropped. Assumes lock is held.
func (p *Player) handleUpdate(payload []byte) {
	if p.Dead || bytes.Equal(p.lastUpdate, payload) {
		return
	}
	r := protocol.NewReader(payload)
	level := r.Int8()
	zone := r.Int8()
	x, y := r.Vec2()
	sprite := r.Int8()
	r.Bool() // facing flag, relayed untouched

	if p.Level != level || p.Zone != zone {
		p.match.onPlayerWarpLocked(p, level, zone)
	}
	if p.Level < level {
		// Entering a later level re-arms the flagpole bonus.
		p.flagTouched = false
	}
	p.Level = level
	p.Zone = zone
	p.PosX, p.PosY = x, y

	tile := p.match.getTile(int(level), int(zone), int(x), int(y))
	id := (tile >> 16) & 0xff
	extra := (tile >> 24) & 0xff
	if id == 160 && extra == 1 && !p.flagTouched {
		p.addLeaderBoardCoins(p.match.deps.Settings().CoinRewardFlagpole)
	}
	if id == 160 {
		p.flagTouched = true
	}
	p.lastUpdate = payload

	if sprite > 5 && p.match.isLobby && zone == 0 {
		// Power-up states past fire flower cannot be obtained in the lobby.
		p.match.blockPlayerLocked(p, blockReasonSprite)
		return
	}

	p.match.broadPlayerUpdate(p, payload)
}

// handleEvent relays a player animation event. Events are a block outside
// the lobby spawn rules, so firing one during the lobby phase marks the
// sender a cheater. Assumes lock is held.
func (p *Player) handleEvent(payload []byte) {
	if p.Dead || p.Win {
		return
	}
	if p.match.isLobby {
		p.match.blockPlayerLocked(p, blockReasonEvent)
		return
	}
	p.match.broadBin(protocol.OpPlayerEvent, protocol.NewWriter().Int16(p.ID).Raw(payload).Bytes())
}

// handleKillClaim credits the sender with a PvP kill on the named victim
// and notifies the victim. Claims against yourself or absent players are
// dropped. Assumes lock is held.
func (p *Player) handleKillClaim(payload []byte) {
	r := protocol.NewReader(payload)
	victimID := r.Int16()
	if victimID == p.ID {
		return
	}
	victim := p.match.getPlayerLocked(victimID)
	if victim == nil {
		return
	}
	p.addKill()
	victim.conn.SendBin(protocol.OpKillClaim, protocol.NewWriter().Int16(p.ID).Raw(payload).Bytes())
	p.addLeaderBoardCoins(killReward)
}

// handleResult processes an axe touch: assign the next podium position,
// award its bonus, and tell the match. Position 1 also counts a win and
// announces the round. Assumes lock is held.
func (p *Player) handleResult() {
	if p.Dead || p.Win {
		return
	}
	p.Win = true
	p.conn.StartDCTimer(120)

	s := p.match.deps.Settings()
	pos := p.match.nextWinner()
	if pos == 1 {
		p.addWin()
		p.match.recordWinLocked(p)
	}

	// Everyone must see the winner parked at the axe.
	if p.lastUpdate != nil {
		p.match.broadPlayerUpdate(p, p.lastUpdate)
	}

	switch pos {
	case 1:
		p.addLeaderBoardCoins(s.CoinRewardPodium1)
	case 2:
		p.addLeaderBoardCoins(s.CoinRewardPodium2)
	case 3:
		p.addLeaderBoardCoins(s.CoinRewardPodium3)
	}
	p.match.broadBin(protocol.OpResult, protocol.NewWriter().Int16(p.ID).Int8(int8(pos)).Int8(0).Bytes())
}

// handleTrust counts client attestation failures; past the allowance the
// connection is blocked. Assumes lock is held.
func (p *Player) handleTrust() {
	p.trustCount++
	if p.trustCount > trustAllowance {
		p.match.blockPlayerLocked(p, blockReasonTrust)
	}
}

// addCoin awards one loose coin. The client is always told so the HUD
// stays in sync, but lobby pickups never accrue. Assumes lock is held.
func (p *Player) addCoin() {
	if !p.Lobbier {
		p.Coins++
	}
	p.conn.SendBin(protocol.OpCoinCollect, protocol.NewWriter().Int8(0).Bytes())
}

// addLeaderBoardCoins applies a signed leaderboard coin delta.
// Assumes lock is held.
func (p *Player) addLeaderBoardCoins(n int) {
	if !p.Lobbier {
		p.Coins += n
	}
	p.conn.SendBin(protocol.OpLeaderCoins, protocol.NewWriter().Int32(int32(n)).Bytes())
}

// Assumes lock is held.
func (p *Player) addWin() {
	if !p.Lobbier {
		p.Wins++
	}
}

// Assumes lock is held.
func (p *Player) addDeath() {
	if !p.Lobbier {
		p.Deaths++
	}
}

// Assumes lock is held.
func (p *Player) addKill() {
	if !p.Lobbier {
		p.Kills++
	}
}

// ban kicks the player, optionally blocking them first. Guests are blocked
// at the address level; account holders only for the life of the socket,
// the durable ban living on the account row. Assumes lock is held.
func (p *Player) ban(ban bool) {
	if ban {
		if p.Username == "" {
			p.match.blockPlayerLocked(p, blockReasonBan)
		} else {
			p.conn.SetBlocked()
		}
	}
	p.conn.SendClose()
}

// rename force-sets the display name; the flag stops the next login from
// restoring the old one. Assumes lock is held.
func (p *Player) rename(name string) {
	p.Name = name
	p.ForceRenamed = true
}

// hurryUp gives the player a deadline to finish the run, enforced by an
// independent disconnect timer with a 30 second grace. Repeat calls are
// no-ops. Assumes lock is held.
func (p *Player) hurryUp(seconds int) {
	if p.hurryingUp {
		return
	}
	p.hurryingUp = true
	p.conn.SendJSON(protocol.HurryUp{Type: "ghu", Time: seconds})
	p.conn.StartDCTimerIndependent(seconds + 30)
}
