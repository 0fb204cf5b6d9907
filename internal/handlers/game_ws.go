// internal/handlers/game_ws.go
//
// Game-state ("g") message handlers. Connections that carry no player (a
// banned address, or a join during shutdown drain) still answer g00/g03:
// they get a holding world and a throwaway pid so the client renders
// something instead of hanging.
package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openroyale/royaled/internal/protocol"
)

func (c *Conn) handleGame(msg interface{}) error {
	switch m := msg.(type) {
	case *protocol.IngameReady:
		return c.gameReady()
	case *protocol.LoadComplete:
		c.gameLoadComplete()
	case *protocol.VoteStart:
		if c.player != nil {
			c.match.CastVote(c.player)
		}
	case *protocol.ForceStart:
		c.gameForceStart(m)
	case *protocol.LevelSelect:
		c.gameLevelSelect(m)
	case *protocol.BanPlayer:
		return c.devCommand("gbn", func() { c.match.BanPlayer(m.PID, m.Ban) })
	case *protocol.RenamePlayer:
		return c.devCommand("gnm", func() { c.match.RenamePlayer(m.PID, m.Name) })
	case *protocol.ResquadPlayer:
		return c.devCommand("gsq", func() { c.match.ResquadPlayer(m.PID, m.Name) })
	default:
		c.log.Debugf("frame out of place in game state: %T", msg)
	}
	return nil
}

// gameReady (g00) acknowledges the state flip and asks for a world.
func (c *Conn) gameReady() error {
	if err := c.consumePending(); err != nil {
		return err
	}
	if c.player == nil {
		world := "jail"
		if c.srv.Draining() && !c.Blocked() {
			world = "maintenance"
		}
		c.sendHoldingWorld(world)
		return nil
	}
	c.match.OnPlayerEnterIngame(c.player)
	return nil
}

// sendHoldingWorld loads a playerless connection into an isolation world.
func (c *Conn) sendHoldingWorld(levelType string) {
	world, data, err := c.srv.RandomLevel(levelType, "")
	if err != nil {
		world, data = levelType, nil
	}
	load := protocol.WorldLoad{Game: world, Type: "g01"}
	if world == "custom" {
		raw, _ := json.Marshal(data)
		load.LevelData = string(raw)
	}
	c.SendJSON(protocol.NewBatch(load))
}

// gameLoadComplete (g03) finishes the world load. A playerless connection
// gets a zeroed pid assignment; there is nobody else in its world anyway.
func (c *Conn) gameLoadComplete() {
	if c.player == nil {
		c.SendBin(protocol.OpAssignPID,
			protocol.NewWriter().Int16(0).Int16(0).Bool(false).Bytes())
		return
	}
	c.match.OnPlayerLoadComplete(c.player)
}

// gameForceStart (g51) starts the round early when the moderator code
// matches. A wrong code is silently ignored.
func (c *Conn) gameForceStart(m *protocol.ForceStart) {
	mcode := c.srv.settings().MCode
	if c.player == nil || m.Code == "" || mcode == "" {
		return
	}
	if !strings.Contains(mcode, m.Code) {
		return
	}
	c.match.Start(true)
}

// gameLevelSelect (gsl) pins the next round's level. Only private rooms,
// and only squadless players unless multi-private selection is enabled;
// devs bypass both restrictions.
func (c *Conn) gameLevelSelect(m *protocol.LevelSelect) {
	if c.player == nil {
		return
	}
	set := c.srv.settings()
	restricted := !c.match.Private ||
		(!set.EnableLevelSelectInMultiPrivate && c.player.Team != "")
	if restricted && !c.player.IsDev {
		return
	}
	if m.Name == "custom" {
		if err := c.match.SelectCustomLevel(m.Data); err != nil {
			c.SendJSON(protocol.LevelSelectResult{
				Type:    "gsl",
				Name:    m.Name,
				Status:  "error",
				Message: truncateLines(err.Error(), 10),
			})
			return
		}
		c.SendJSON(protocol.LevelSelectResult{Type: "gsl", Name: m.Name, Status: "success"})
		return
	}
	c.match.SelectLevel(m.Name)
}

// devCommand gates the moderation messages. A non-dev sending one is a
// modified client and is dropped.
func (c *Conn) devCommand(tag string, run func()) error {
	if c.player == nil || !c.player.IsDev {
		return fmt.Errorf("%s from non-dev connection", tag)
	}
	run()
	return nil
}

// truncateLines caps a multi-line message, keeping validation errors
// readable in the client's toast.
func truncateLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n")
}
