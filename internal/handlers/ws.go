// internal/handlers/ws.go
//
// One websocket client. The read loop owns the protocol state machine; a
// separate write loop drains a bounded queue so a slow client can never
// stall a match broadcast. Matches talk back through the game.ClientConn
// methods, all of which enqueue and return.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/openroyale/royaled/internal/database"
	"github.com/openroyale/royaled/internal/game"
	"github.com/openroyale/royaled/internal/models"
	"github.com/openroyale/royaled/internal/protocol"
)

const (
	maxFrameSize  = 4 << 20
	sendQueueSize = 256
	pingInterval  = 30 * time.Second
	writeTimeout  = 5 * time.Second

	// The client gets this long to send l00 after the upgrade.
	openDeadlineSecs = 25
)

// socket is the slice of *websocket.Conn the connection uses; tests swap in
// an in-memory pipe.
type socket interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
	CloseNow() error
}

type outFrame struct {
	typ  websocket.MessageType
	data []byte
}

// Conn is one client connection. The fields below the marker are owned by
// the read loop and must not be touched from anywhere else.
type Conn struct {
	srv  *Server
	sock socket
	addr string
	log  *logrus.Entry

	ctx       context.Context
	cancel    context.CancelFunc
	sendCh    chan outFrame
	closeOnce sync.Once

	closeMu     sync.Mutex
	closeCode   websocket.StatusCode
	closeReason string

	timerMu sync.Mutex
	dcTimer *time.Timer

	flagMu  sync.Mutex
	blocked bool

	// Read-loop state.
	state       string
	pendingStat string
	recv        []byte

	account *models.Account
	session string

	player *game.Player
	match  *game.Match
}

func newConn(srv *Server, sock socket, addr string) *Conn {
	return &Conn{
		srv:    srv,
		sock:   sock,
		addr:   addr,
		log:    srv.log.WithField("remote", addr),
		sendCh: make(chan outFrame, sendQueueSize),
	}
}

// run drives the connection until the socket dies, then settles everything
// the connection touched.
func (c *Conn) run(parent context.Context) {
	c.ctx, c.cancel = context.WithCancel(parent)
	c.srv.register(c)
	defer c.cleanup()

	go c.writeLoop()

	c.setState("l")
	c.StartDCTimer(openDeadlineSecs)
	c.readLoop()
}

// setState pushes a protocol state change. The client must acknowledge it
// with the state's ready message (l00 or g00) before anything else counts.
func (c *Conn) setState(state string) {
	c.state = state
	c.pendingStat = state
	c.SendJSON(protocol.NewBatch(protocol.State(state)))
}

// consumePending burns the state latch. Returns an error when there was
// nothing pending, meaning the client repeated a ready message.
func (c *Conn) consumePending() error {
	if c.pendingStat == "" {
		return fmt.Errorf("ready message with no state pending")
	}
	c.pendingStat = ""
	return nil
}

func (c *Conn) readLoop() {
	for {
		typ, data, err := c.sock.Read(c.ctx)
		if err != nil {
			c.shutdown(websocket.StatusNormalClosure, "")
			return
		}
		switch typ {
		case websocket.MessageText:
			if err := c.handleText(data); err != nil {
				c.log.Warnf("dropping connection: %v", err)
				c.shutdown(CloseProtocolViolation, "protocol violation")
				return
			}
		case websocket.MessageBinary:
			c.handleBinary(data)
		}
		select {
		case <-c.ctx.Done():
			return
		default:
		}
	}
}

func (c *Conn) handleText(data []byte) error {
	msg, err := protocol.Decode(data)
	if err != nil {
		return err
	}
	if u, ok := msg.(protocol.UnknownMessage); ok {
		c.log.Debugf("unhandled frame type %q", u.Type)
		return nil
	}
	switch c.state {
	case "l":
		return c.handleLobby(msg)
	case "g":
		return c.handleGame(msg)
	}
	return nil
}

// handleBinary feeds the opcode stream. Payload lengths are fixed per
// opcode, so frames are drained off an append-only buffer; an unknown
// opcode desyncs the stream and the whole buffer is thrown away.
func (c *Conn) handleBinary(data []byte) {
	if c.Blocked() || c.player == nil || c.match.RefusesBinary(c.player) {
		c.recv = c.recv[:0]
		return
	}
	c.recv = append(c.recv, data...)
	for len(c.recv) > 0 {
		code := c.recv[0]
		n, ok := protocol.PayloadLen(code)
		if !ok {
			c.log.Debugf("unknown binary opcode 0x%02x", code)
			c.recv = c.recv[:0]
			return
		}
		if len(c.recv) < 1+n {
			return
		}
		payload := make([]byte, n)
		copy(payload, c.recv[1:1+n])
		c.recv = c.recv[1+n:]
		c.match.HandleBinary(c.player, code, payload)
	}
}

func (c *Conn) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case f := <-c.sendCh:
			if err := c.write(f.typ, f.data); err != nil {
				c.shutdown(websocket.StatusNormalClosure, "")
				return
			}
		case <-ping.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err := c.sock.Ping(ctx)
			cancel()
			if err != nil {
				c.shutdown(websocket.StatusNormalClosure, "")
				return
			}
		}
	}
}

func (c *Conn) write(typ websocket.MessageType, data []byte) error {
	ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	return c.sock.Write(ctx, typ, data)
}

func (c *Conn) enqueue(typ websocket.MessageType, data []byte) {
	select {
	case c.sendCh <- outFrame{typ: typ, data: data}:
	default:
		c.log.Warn("outbound queue overflow, dropping connection")
		c.shutdown(CloseSendOverflow, "send queue overflow")
	}
}

// SendJSON implements game.ClientConn.
func (c *Conn) SendJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Errorf("marshal outbound frame: %v", err)
		return
	}
	c.enqueue(websocket.MessageText, b)
}

// SendText implements game.ClientConn.
func (c *Conn) SendText(b []byte) {
	c.enqueue(websocket.MessageText, b)
}

// SendBin implements game.ClientConn.
func (c *Conn) SendBin(code byte, payload []byte) {
	c.enqueue(websocket.MessageBinary, protocol.Frame(code, payload))
}

// SendClose implements game.ClientConn.
func (c *Conn) SendClose() {
	c.shutdown(websocket.StatusNormalClosure, "")
}

// StartDCTimer implements game.ClientConn.
func (c *Conn) StartDCTimer(seconds int) {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.dcTimer != nil {
		c.dcTimer.Stop()
	}
	c.dcTimer = time.AfterFunc(time.Duration(seconds)*time.Second, c.watchdogFire)
}

// StartDCTimerIndependent implements game.ClientConn. The timer it arms is
// never canceled; the hurry-up deadline must survive respawns.
func (c *Conn) StartDCTimerIndependent(seconds int) {
	time.AfterFunc(time.Duration(seconds)*time.Second, c.watchdogFire)
}

// StopDCTimer implements game.ClientConn.
func (c *Conn) StopDCTimer() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.dcTimer != nil {
		c.dcTimer.Stop()
		c.dcTimer = nil
	}
}

func (c *Conn) watchdogFire() {
	c.log.Info("disconnect watchdog expired")
	c.shutdown(CloseWatchdogExpired, "inactivity")
}

// Blocked implements game.ClientConn.
func (c *Conn) Blocked() bool {
	c.flagMu.Lock()
	defer c.flagMu.Unlock()
	return c.blocked
}

// SetBlocked implements game.ClientConn.
func (c *Conn) SetBlocked() {
	c.flagMu.Lock()
	c.blocked = true
	c.flagMu.Unlock()
}

// BlockAddress implements game.ClientConn. The file write happens off the
// caller's goroutine; matches call this under their lock.
func (c *Conn) BlockAddress(playerName string, reason byte) {
	addr, name, r := c.addr, playerName, int(reason)
	go func() {
		if err := c.srv.blocklist.Add(addr, name, r); err != nil {
			c.log.Warnf("blocklist append: %v", err)
		}
	}()
}

// Username implements game.ClientConn.
func (c *Conn) Username() string {
	if c.account == nil {
		return ""
	}
	return c.account.Username
}

// shutdown records the close code and stops the loops. The actual close
// handshake runs in cleanup on the connection's own goroutine, so shutdown
// never blocks and is safe to call from a match lock.
func (c *Conn) shutdown(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		c.closeMu.Lock()
		c.closeCode, c.closeReason = code, reason
		c.closeMu.Unlock()
		c.cancel()
	})
}

// cleanup settles everything after the read loop exits: timers, the captcha
// slot, the session claim, the match seat, and finally the account flush.
func (c *Conn) cleanup() {
	c.shutdown(websocket.StatusNormalClosure, "")
	c.StopDCTimer()
	c.srv.captchas.Remove(c.addr)

	if c.account != nil {
		c.srv.releaseUsername(c.account.Username)
	}

	if c.player != nil {
		c.match.RemovePlayer(c.player)
		c.flushStats()
	}

	c.srv.unregister(c)

	c.closeMu.Lock()
	code, reason := c.closeCode, c.closeReason
	c.closeMu.Unlock()
	_ = c.sock.Close(code, reason)
	_ = c.sock.CloseNow()
}

// flushStats persists the session accrual for a logged-in player. Called
// after RemovePlayer, so nothing mutates the player anymore. Private-room
// rounds never count.
func (c *Conn) flushStats() {
	if c.account == nil {
		return
	}
	f := database.StatsFlush{}
	if !c.match.Private {
		f.Delta = c.player.StatsDelta()
	}
	if c.Blocked() {
		f.SetBanned = true
	}
	if c.player.ForceRenamed {
		f.Renamed = true
		f.Nickname = c.player.Name
		f.Squad = c.player.Team
	}
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	if err := database.FlushStats(ctx, c.account.ID, f); err != nil {
		c.log.Warnf("stats flush: %v", err)
	}
}
