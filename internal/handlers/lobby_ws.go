// internal/handlers/lobby_ws.go
//
// Lobby-state ("l") message handlers: match entry plus the whole account
// surface. Replies reuse the request's type tag with a status flag; the
// exact failure strings are part of the protocol and shown verbatim by the
// client.
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/openroyale/royaled/internal/database"
	"github.com/openroyale/royaled/internal/models"
	"github.com/openroyale/royaled/internal/protocol"
	"github.com/openroyale/royaled/internal/wordfilter"
)

const loginThrottleMsg = "max login tries reached.\ntry again in one minute."

func (c *Conn) handleLobby(msg interface{}) error {
	switch m := msg.(type) {
	case *protocol.InputReady:
		return c.lobbyReady(m)
	case *protocol.LoginRequest:
		c.lobbyLogin(m)
	case *protocol.LogoutRequest:
		c.lobbyLogout()
	case *protocol.RegisterRequest:
		return c.lobbyRegister(m)
	case *protocol.CaptchaRequest:
		c.lobbyCaptcha()
	case *protocol.ResumeRequest:
		c.lobbyResume(m)
	case *protocol.ProfileUpdate:
		c.lobbyProfileUpdate(m)
	case *protocol.PasswordChange:
		c.lobbyPasswordChange(m)
	default:
		c.log.Debugf("frame out of place in lobby state: %T", msg)
	}
	return nil
}

// lobbyReady (l00) places the connection into a match and flips the
// connection to game state. Banned addresses and a draining server still
// get the state flip, but no player; the game handlers park them in a
// holding world instead.
func (c *Conn) lobbyReady(m *protocol.InputReady) error {
	if err := c.consumePending(); err != nil {
		return err
	}
	c.StopDCTimer()

	set := c.srv.settings()

	// Local connections bypass the address budget so ops can always get in.
	if !isLoopback(c.addr) && c.srv.countByAddress(c.addr) >= set.MaxSimulIP {
		c.shutdown(CloseTooManyConns, "too many connections")
		return nil
	}

	if c.srv.blocklist.Contains(c.addr) {
		c.SetBlocked()
	}
	if c.Blocked() || c.srv.Draining() {
		c.setState("g")
		return nil
	}

	name := m.Name
	team := wordfilter.SanitizeTeam(m.Team)
	skin := m.Skin
	isDev := false
	if c.account != nil {
		// The account identity wins over whatever the join form said.
		name = c.account.Nickname
		team = wordfilter.SanitizeTeam(c.account.Squad)
		skin = c.account.Skin
		isDev = c.account.IsDev
	}

	// Private rooms key on the joiner's own squad tag; a private join with
	// no tag gets a solo room. The default squad only applies to public
	// joins, after the room key is fixed, so it can never name a room.
	roomName := ""
	if m.Private {
		roomName = strings.ToUpper(team)
	}
	if team == "" && !m.Private {
		team = wordfilter.SanitizeTeam(set.DefaultTeam)
	}

	if !c.srv.skinAllowed(skin, c.account == nil) {
		skin = 0
	}

	gameMode := "royale"
	switch m.GM {
	case 1:
		gameMode = "pvp"
	case 2:
		gameMode = "hell"
	}

	match := c.srv.getMatch(roomName, m.Private, gameMode)
	player := match.AddPlayer(c, name, team, int16(skin), isDev)
	c.match, c.player = match, player
	c.srv.bindPlayer(c, player, match)

	c.SendJSON(protocol.NewBatch(protocol.LoginSuccess{
		Name: player.Name,
		Team: player.Team,
		Type: "l01",
		Skin: int(player.Skin),
	}))
	c.setState("g")
	return nil
}

// lobbyLogin (llg) authenticates. Failures count toward the per-address
// throttle; a banned account logs in fine but the connection is jailed.
func (c *Conn) lobbyLogin(m *protocol.LoginRequest) {
	if c.srv.loginThrottled(c.addr) {
		c.SendJSON(protocol.Fail("llg", loginThrottleMsg))
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, dbTimeout)
	defer cancel()
	acc, err := database.Login(ctx, m.Username, m.Password)
	if err != nil {
		c.srv.noteLoginFailure(c.addr)
		c.SendJSON(protocol.Fail("llg", err.Error()))
		return
	}
	c.srv.clearLoginFailures(c.addr)
	if acc.IsBanned {
		c.SetBlocked()
	}
	c.finishLogin("llg", acc, "")
}

// finishLogin binds the account to the connection, enforcing one live
// session per account name. An empty token mints a fresh session.
func (c *Conn) finishLogin(typ string, acc *models.Account, token string) {
	if c.account != nil {
		c.srv.releaseUsername(c.account.Username)
		c.account = nil
		c.session = ""
	}
	if !c.srv.claimUsername(acc.Username) {
		c.SendJSON(protocol.Fail(typ, "account already in use"))
		return
	}

	if token == "" {
		var err error
		token, err = c.srv.sessions.Create(acc.ID)
		if err != nil {
			c.srv.releaseUsername(acc.Username)
			c.SendJSON(protocol.Fail(typ, "session error"))
			return
		}
	}
	c.account = acc
	c.session = token

	reply := protocol.Reply(typ, true)
	reply["session"] = token
	reply["account"] = acc.Summary()
	c.SendJSON(reply)
}

// lobbyLogout (llo) drops the session and reverts the connection to guest.
func (c *Conn) lobbyLogout() {
	if c.account == nil {
		c.SendJSON(protocol.Fail("llo", "not logged in"))
		return
	}
	c.srv.sessions.Destroy(c.session)
	c.srv.releaseUsername(c.account.Username)
	c.account, c.session = nil, ""
	c.SendJSON(protocol.Reply("llo", true))
}

// lobbyRegister (lrg) creates an account. Reaching here without a solved
// captcha means a scripted client, which is dropped outright.
func (c *Conn) lobbyRegister(m *protocol.RegisterRequest) error {
	if !c.srv.captchas.Verify(c.addr, m.Captcha) {
		return fmt.Errorf("registration without solved captcha")
	}
	if c.srv.filter.Match(m.Username) {
		c.SendJSON(protocol.Fail("lrg", "please choose a different username"))
		return nil
	}

	ctx, cancel := context.WithTimeout(c.ctx, dbTimeout)
	defer cancel()
	acc, err := database.Register(ctx, m.Username, m.Password, c.nicknameAllowed)
	if err != nil {
		c.SendJSON(protocol.Fail("lrg", err.Error()))
		return nil
	}
	c.srv.captchas.Remove(c.addr)
	c.finishLogin("lrg", acc, "")
	return nil
}

// lobbyCaptcha (lrc) issues a fresh challenge image.
func (c *Conn) lobbyCaptcha() {
	img, err := c.srv.captchas.Issue(c.addr)
	if err != nil {
		c.log.Warnf("captcha issue: %v", err)
		c.SendJSON(protocol.Fail("lrc", "captcha unavailable"))
		return
	}
	c.SendJSON(protocol.StatusReply{"type": "lrc", "data": img})
}

// lobbyResume (lrs) restores a session from a stored token.
func (c *Conn) lobbyResume(m *protocol.ResumeRequest) {
	id, ok := c.srv.sessions.Resolve(m.Session)
	if !ok {
		c.SendJSON(protocol.Fail("lrs", "session expired, please log in"))
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, dbTimeout)
	defer cancel()
	acc, err := database.AccountByID(ctx, id)
	if err != nil {
		c.SendJSON(protocol.Fail("lrs", "invalid account"))
		return
	}
	if acc.IsBanned {
		c.SetBlocked()
	}
	c.finishLogin("lrs", acc, m.Session)
}

// lobbyProfileUpdate (lpr) patches account fields. The reply always carries
// a changes map; on failure it holds the current values so the client can
// roll its UI back.
func (c *Conn) lobbyProfileUpdate(m *protocol.ProfileUpdate) {
	if c.account == nil {
		c.SendJSON(protocol.StatusReply{
			"type": "lpr", "status": false,
			"changes": map[string]interface{}{}, "msg": "not logged in",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, dbTimeout)
	defer cancel()
	patch := database.ProfilePatch{Nickname: m.Nickname, Squad: m.Squad, Skin: m.Skin}
	changes, rollback, err := database.UpdateProfile(ctx, c.account.Username, patch, c.nicknameAllowed)
	if err != nil {
		c.SendJSON(protocol.StatusReply{
			"type": "lpr", "status": false,
			"changes": rollback, "msg": err.Error(),
		})
		return
	}

	// Keep the cached account in step so the next l00 uses the new values.
	if v, ok := changes["nickname"].(string); ok {
		c.account.Nickname = v
	}
	if v, ok := changes["squad"].(string); ok {
		c.account.Squad = v
	}
	if v, ok := changes["skin"].(int); ok {
		c.account.Skin = v
	}
	c.SendJSON(protocol.StatusReply{"type": "lpr", "status": true, "changes": changes})
}

// lobbyPasswordChange (lpc) rehashes the password. There is no reply either
// way; the client treats it as fire-and-forget.
func (c *Conn) lobbyPasswordChange(m *protocol.PasswordChange) {
	if c.account == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, dbTimeout)
	defer cancel()
	if err := database.ChangePassword(ctx, c.account.Username, m.Password); err != nil {
		c.log.Warnf("password change: %v", err)
	}
}

func (c *Conn) nicknameAllowed(name string) bool {
	return !c.srv.filter.Match(name)
}
