// internal/handlers/server.go
//
// The match server: owns every live connection, the room store, and the
// background maintenance that keeps config, levels and the ban file fresh
// without a restart.
package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/openroyale/royaled/internal/auth"
	"github.com/openroyale/royaled/internal/cache"
	"github.com/openroyale/royaled/internal/captcha"
	"github.com/openroyale/royaled/internal/config"
	"github.com/openroyale/royaled/internal/database"
	"github.com/openroyale/royaled/internal/game"
	"github.com/openroyale/royaled/internal/levels"
	"github.com/openroyale/royaled/internal/middleware"
	"github.com/openroyale/royaled/internal/models"
	"github.com/openroyale/royaled/internal/notify"
	"github.com/openroyale/royaled/internal/wordfilter"
)

// ErrDrained is returned by RunMaintenance once a requested shutdown drain
// has finished; the caller should stop accepting and exit cleanly.
var ErrDrained = errors.New("shutdown drain complete")

const (
	maintenanceInterval = 5 * time.Second
	leaderboardInterval = 60 * time.Second

	// Drain gives every live run this long to finish, then another minute
	// of slack before the server stops waiting.
	drainHurryUpSecs = 180
	drainDeadline    = 4 * time.Minute

	dbTimeout = 5 * time.Second
)

type playerRef struct {
	p *game.Player
	m *game.Match
}

type loginWindow struct {
	count int
	since time.Time
}

// Server wires the room store to the services the matches call out to and
// tracks per-address connection state.
type Server struct {
	log *logrus.Logger

	cfg     *config.Live
	cfgPath string

	store     *game.MatchStore
	catalog   *levels.Catalog
	filter    *wordfilter.Filter
	captchas  *captcha.Registry
	sessions  *auth.Sessions
	discord   *notify.Discord
	blocklist *Blocklist

	mu       sync.Mutex
	conns    map[*Conn]struct{}
	players  map[*Conn]playerRef
	authd    map[string]bool
	tries    map[string]*loginWindow
	ipBlocks map[string]time.Time
	draining bool
	deadline time.Time

	hashes map[string]string

	skinCount  int
	guestSkins map[int]bool
}

// NewServer builds a server around already-loaded config, level catalog and
// word filter. The ban file named by the config is loaded here; a parse
// failure is fatal since running without the list would unban everyone.
func NewServer(log *logrus.Logger, cfg *config.Live, cfgPath string, catalog *levels.Catalog, filter *wordfilter.Filter) (*Server, error) {
	blocklist, err := LoadBlocklist(cfg.Current().BlockedPath)
	if err != nil {
		return nil, err
	}
	return &Server{
		log:       log,
		cfg:       cfg,
		cfgPath:   cfgPath,
		store:     game.NewMatchStore(),
		catalog:   catalog,
		filter:    filter,
		captchas:  captcha.NewRegistry(),
		sessions:  auth.NewSessions(),
		discord:   notify.New(),
		blocklist: blocklist,
		conns:     make(map[*Conn]struct{}),
		players:   make(map[*Conn]playerRef),
		authd:     make(map[string]bool),
		tries:     make(map[string]*loginWindow),
		ipBlocks:  make(map[string]time.Time),
		hashes:    make(map[string]string),
	}, nil
}

func (s *Server) settings() *config.Settings {
	return s.cfg.Current()
}

// HandleWS upgrades and runs one client connection; it returns when the
// socket is gone.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warnf("websocket accept: %v", err)
		return
	}
	// Custom level uploads ride in a single text frame.
	ws.SetReadLimit(maxFrameSize)

	addr := clientAddress(r)
	middleware.LogWebSocketConnect(s.log, addr, r.URL.Path)
	c := newConn(s, ws, addr)
	c.run(r.Context())
	middleware.LogWebSocketDisconnect(s.log, addr, r.URL.Path, nil)
}

// clientAddress prefers the proxy-set real IP over the socket peer.
func clientAddress(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isLoopback(addr string) bool {
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}

// getMatch finds or builds the room a join request lands in.
func (s *Server) getMatch(roomName string, private bool, gameMode string) *game.Match {
	set := s.settings()
	return s.store.FindOrCreate(roomName, private, gameMode, set.PlayerCap, set.AllowLateEnter, func() *game.Match {
		return game.NewMatch(roomName, private, gameMode, game.MatchDeps{
			Settings: s.settings,
			Levels:   s,
			Filter:   s.filter,
			OnEmpty:  s.store.Remove,
			AnnounceWin: func(name, mode string) {
				s.discord.AnnounceWin(s.settings().DiscordWebhookURL, name, mode)
			},
			PublishResult: func(res models.MatchResult) {
				ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
				defer cancel()
				if err := cache.PublishResult(ctx, res); err != nil {
					s.log.Warnf("publish result: %v", err)
				}
			},
		})
	})
}

// GetLevel resolves a catalog level; catalog levels are served to clients as
// "custom" worlds with the data inlined.
func (s *Server) GetLevel(name string) (string, map[string]interface{}, error) {
	data, ok := s.catalog.Get(name)
	if !ok {
		return "", nil, fmt.Errorf("no such level %q", name)
	}
	return "custom", data, nil
}

// RandomLevel picks a world of the given type. Without a catalog (or when
// the catalog has no match) the built-in world names from server.cfg serve
// as a fallback; the client ships those levels itself.
func (s *Server) RandomLevel(levelType, mode string) (string, map[string]interface{}, error) {
	if s.catalog.Enabled() {
		if data, err := s.catalog.Random(levelType, mode); err == nil {
			return "custom", data, nil
		}
	}

	switch levelType {
	case "lobby", "jail", "maintenance":
		return levelType, nil, nil
	case "game":
		set := s.settings()
		pool := set.Worlds
		switch mode {
		case "pvp":
			pool = set.WorldsPVP
		case "hell":
			pool = set.WorldsHell
		}
		if len(pool) == 0 {
			return "", nil, fmt.Errorf("no worlds configured for mode %q", mode)
		}
		return pool[rand.Intn(len(pool))], nil, nil
	}
	return "", nil, fmt.Errorf("unknown level type %q", levelType)
}

// LevelList enumerates selectable catalog levels.
func (s *Server) LevelList(levelType, mode string) []levels.Entry {
	return s.catalog.List(levelType, mode)
}

// HasLevel reports whether the catalog holds the named level.
func (s *Server) HasLevel(name string) bool {
	return s.catalog.Has(name)
}

func (s *Server) register(c *Conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) unregister(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	delete(s.players, c)
	s.mu.Unlock()
}

// bindPlayer records that the connection entered a match.
func (s *Server) bindPlayer(c *Conn, p *game.Player, m *game.Match) {
	s.mu.Lock()
	s.players[c] = playerRef{p: p, m: m}
	s.mu.Unlock()
}

// playerCount is the number of connections that made it into a match.
func (s *Server) playerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// countByAddress counts in-match connections sharing an address.
func (s *Server) countByAddress(addr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for c := range s.players {
		if c.addr == addr {
			n++
		}
	}
	return n
}

// claimUsername enforces one live session per account name.
func (s *Server) claimUsername(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authd[name] {
		return false
	}
	s.authd[name] = true
	return true
}

func (s *Server) releaseUsername(name string) {
	s.mu.Lock()
	delete(s.authd, name)
	s.mu.Unlock()
}

// Login throttle: four failures inside a minute block the address for a
// minute.
const (
	loginTryLimit  = 4
	loginTryWindow = time.Minute
	loginBlockTime = time.Minute
)

func (s *Server) loginThrottled(addr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.ipBlocks[addr]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(s.ipBlocks, addr)
		return false
	}
	return true
}

func (s *Server) noteLoginFailure(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.tries[addr]
	if w == nil || time.Since(w.since) > loginTryWindow {
		w = &loginWindow{since: time.Now()}
		s.tries[addr] = w
	}
	w.count++
	if w.count >= loginTryLimit {
		s.ipBlocks[addr] = time.Now().Add(loginBlockTime)
		delete(s.tries, addr)
	}
}

func (s *Server) clearLoginFailures(addr string) {
	s.mu.Lock()
	delete(s.tries, addr)
	s.mu.Unlock()
}

// Draining reports whether a shutdown drain is in progress.
func (s *Server) Draining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draining
}

// beginDrain stops admitting players and puts every live run on a finish
// deadline. Idempotent.
func (s *Server) beginDrain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.deadline = time.Now().Add(drainDeadline)
	refs := make([]playerRef, 0, len(s.players))
	for _, ref := range s.players {
		refs = append(refs, ref)
	}
	s.mu.Unlock()

	s.log.Warn("shutdown requested, draining connections")
	for _, ref := range refs {
		ref.m.HurryUpPlayer(ref.p, drainHurryUpSecs)
	}
}

// RunMaintenance runs the 5 second housekeeping pass until the context ends
// or a shutdown drain completes, in which case it returns ErrDrained.
func (s *Server) RunMaintenance(ctx context.Context) error {
	t := time.NewTicker(maintenanceInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if s.maintain() {
				return ErrDrained
			}
		}
	}
}

// maintain does one housekeeping pass. Returns true once a drain finished.
func (s *Server) maintain() bool {
	set := s.settings()

	if data, changed := s.fileChanged(s.cfgPath); changed {
		next, err := config.Parse(data)
		if err != nil {
			s.log.Warnf("config reload: %v", err)
		} else {
			prev := s.cfg.Replace(next)
			s.log.Info("configuration reloaded")
			if next.PlayerCap < prev.PlayerCap {
				// Rooms already over the new cap start instead of shedding
				// players.
				for _, m := range s.store.List() {
					if m.PlayerCount() >= next.PlayerCap {
						m.Start(true)
					}
				}
			}
			set = next
		}
	}

	if set.AssetsMetadataPath != "" {
		if data, changed := s.fileChanged(set.AssetsMetadataPath); changed {
			s.loadAssetsMetadata(data)
		}
	}

	if err := s.blocklist.Reload(); err != nil {
		s.log.Warnf("blocklist reload: %v", err)
	}
	if err := s.catalog.Reload(); err != nil {
		s.log.Warnf("level reload: %v", err)
	}

	s.expireLoginBlocks()

	if set.ShutdownPath != "" {
		if _, err := os.Stat(set.ShutdownPath); err == nil {
			if err := os.Remove(set.ShutdownPath); err != nil {
				s.log.Warnf("remove shutdown sentinel: %v", err)
			}
			s.beginDrain()
		}
	}

	if set.StatusPath != "" {
		s.writeStatus(set.StatusPath)
	}

	s.mu.Lock()
	draining, deadline := s.draining, s.deadline
	s.mu.Unlock()
	return draining && (s.playerCount() == 0 || time.Now().After(deadline))
}

// fileChanged reads the file and reports whether its content hash moved
// since the last pass. A missing file reports unchanged.
func (s *Server) fileChanged(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hashes[path] == hash {
		return nil, false
	}
	s.hashes[path] = hash
	return data, true
}

func (s *Server) expireLoginBlocks() {
	now := time.Now()
	s.mu.Lock()
	for addr, until := range s.ipBlocks {
		if now.After(until) {
			delete(s.ipBlocks, addr)
		}
	}
	s.mu.Unlock()
}

// loadAssetsMetadata pulls the skin inventory out of the client asset
// manifest so skin validation tracks the deployed client.
func (s *Server) loadAssetsMetadata(data []byte) {
	var meta struct {
		Skins struct {
			Count      int `json:"count"`
			Properties []struct {
				ID        int  `json:"id"`
				ForGuests bool `json:"forGuests"`
			} `json:"properties"`
		} `json:"skins"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		s.log.Warnf("assets metadata: %v", err)
		return
	}
	guests := make(map[int]bool, len(meta.Skins.Properties))
	for _, p := range meta.Skins.Properties {
		if p.ForGuests {
			guests[p.ID] = true
		}
	}
	s.mu.Lock()
	s.skinCount = meta.Skins.Count
	s.guestSkins = guests
	s.mu.Unlock()
	s.log.Infof("assets metadata loaded, %d skins", meta.Skins.Count)
}

// skinAllowed validates a join-time skin choice. Guests may be limited to
// the guest-flagged skins from the asset manifest.
func (s *Server) skinAllowed(skin int, guest bool) bool {
	set := s.settings()
	s.mu.Lock()
	count, guests := s.skinCount, s.guestSkins
	s.mu.Unlock()
	if count == 0 {
		count = set.SkinCount
	}
	if skin < 0 || skin >= count {
		return false
	}
	if guest && set.RestrictPublicSkins && len(guests) > 0 && !guests[skin] {
		return false
	}
	return true
}

// writeStatus publishes the load snapshot the homepage polls.
func (s *Server) writeStatus(path string) {
	s.mu.Lock()
	status := struct {
		Active      int  `json:"active"`
		Maintenance bool `json:"maintenance"`
	}{Active: len(s.players), Maintenance: s.draining}
	s.mu.Unlock()

	data, err := json.Marshal(status)
	if err != nil {
		return
	}
	if err := writeAtomic(path, data); err != nil {
		s.log.Warnf("write status: %v", err)
	}
}

// RunLeaderboard snapshots the coin leaderboard to disk every minute.
func (s *Server) RunLeaderboard(ctx context.Context) error {
	if !database.Connected() {
		return nil
	}
	t := time.NewTicker(leaderboardInterval)
	defer t.Stop()
	for {
		s.writeLeaderboard(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Server) writeLeaderboard(ctx context.Context) {
	path := s.settings().LeaderBoardPath
	if path == "" {
		return
	}
	qctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	rows, err := database.Leaderboard(qctx)
	if err != nil {
		s.log.Warnf("leaderboard query: %v", err)
		return
	}
	if rows == nil {
		rows = []models.LeaderboardRow{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := writeAtomic(path, data); err != nil {
		s.log.Warnf("write leaderboard: %v", err)
	}
}

// writeAtomic writes through a temp file and rename so readers never see a
// half-written file.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
