// internal/config/config.go
//
// Runtime settings parsed from server.cfg. The file is re-read by the
// maintenance loop whenever its content hash changes, so every field here
// must be safe to swap mid-flight; Settings values are immutable once
// loaded and replaced wholesale through Live.
package config

import (
	"fmt"
	"strings"

	ini "gopkg.in/ini.v1"
)

// Settings mirrors the [Server] and [Match] sections of server.cfg.
type Settings struct {
	// [Server]
	ListenPort          int
	MCode               string
	StatusPath          string
	LeaderBoardPath     string
	AssetsMetadataPath  string
	WordsPath           string
	LevelsPath          string
	BlockedPath         string
	ShutdownPath        string
	DefaultName         string
	DefaultTeam         string
	MaxSimulIP          int
	SkinCount           int
	RestrictPublicSkins bool
	DiscordWebhookURL   string
	// An empty PostgresHost disables the account system unless
	// DATABASE_URL is set.
	PostgresHost string
	PostgresPort int
	PostgresUser string
	PostgresPass string
	PostgresDB   string

	// [Match]
	PlayerMin                       int
	PlayerCap                       int
	AutoStartTime                   int
	StartTimer                      int
	EnableAutoStartInMultiPrivate   bool
	EnableLevelSelectInMultiPrivate bool
	EnableVoteStart                 bool
	VoteRateToStart                 float64
	AllowLateEnter                  bool
	CoinRewardFlagpole              int
	CoinRewardPodium1               int
	CoinRewardPodium2               int
	CoinRewardPodium3               int

	// Built-in world names, used only when no levels directory is present.
	Worlds     []string
	WorldsPVP  []string
	WorldsHell []string
}

// Load parses a server.cfg file. Missing keys fall back to defaults, so a
// minimal file is enough to boot a dev server.
func Load(path string) (*Settings, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return parse(f), nil
}

// Parse reads settings out of raw INI bytes. Used by tests and by the
// maintenance loop, which hashes file content before deciding to re-parse.
func Parse(data []byte) (*Settings, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return parse(f), nil
}

func parse(f *ini.File) *Settings {
	srv := f.Section("Server")
	match := f.Section("Match")

	s := &Settings{
		ListenPort:          srv.Key("ListenPort").MustInt(9000),
		MCode:               strings.TrimSpace(srv.Key("MCode").String()),
		StatusPath:          strings.TrimSpace(srv.Key("StatusPath").String()),
		LeaderBoardPath:     strings.TrimSpace(srv.Key("LeaderBoardPath").String()),
		AssetsMetadataPath:  strings.TrimSpace(srv.Key("AssetsMetadataPath").String()),
		WordsPath:           strings.TrimSpace(srv.Key("WordsPath").MustString("words.json")),
		LevelsPath:          strings.TrimSpace(srv.Key("LevelsPath").MustString("levels")),
		BlockedPath:         strings.TrimSpace(srv.Key("BlockedPath").MustString("blocked.json")),
		ShutdownPath:        strings.TrimSpace(srv.Key("ShutdownPath").MustString("shutdown")),
		DefaultName:         strings.TrimSpace(srv.Key("DefaultName").MustString("MARIO")),
		DefaultTeam:         strings.TrimSpace(srv.Key("DefaultTeam").String()),
		MaxSimulIP:          srv.Key("MaxSimulIP").MustInt(4),
		SkinCount:           srv.Key("SkinCount").MustInt(1),
		RestrictPublicSkins: srv.Key("RestrictPublicSkins").MustBool(false),
		DiscordWebhookURL:   strings.TrimSpace(srv.Key("DiscordWebhookUrl").String()),
		PostgresHost:        srv.Key("PostgresHost").String(),
		PostgresPort:        srv.Key("PostgresPort").MustInt(5432),
		PostgresUser:        srv.Key("PostgresUser").MustString("postgres"),
		PostgresPass:        srv.Key("PostgresPass").String(),
		PostgresDB:          srv.Key("PostgresDB").MustString("royale"),

		PlayerMin:                       match.Key("PlayerMin").MustInt(10),
		PlayerCap:                       match.Key("PlayerCap").MustInt(75),
		AutoStartTime:                   match.Key("AutoStartTime").MustInt(60),
		StartTimer:                      match.Key("StartTimer").MustInt(30),
		EnableAutoStartInMultiPrivate:   match.Key("EnableAutoStartInMultiPrivate").MustBool(false),
		EnableLevelSelectInMultiPrivate: match.Key("EnableLevelSelectInMultiPrivate").MustBool(true),
		EnableVoteStart:                 match.Key("EnableVoteStart").MustBool(true),
		VoteRateToStart:                 match.Key("VoteRateToStart").MustFloat64(0.6),
		AllowLateEnter:                  match.Key("AllowLateEnter").MustBool(false),
		CoinRewardFlagpole:              match.Key("CoinRewardFlagpole").MustInt(500),
		CoinRewardPodium1:               match.Key("CoinRewardPodium1").MustInt(200),
		CoinRewardPodium2:               match.Key("CoinRewardPodium2").MustInt(100),
		CoinRewardPodium3:               match.Key("CoinRewardPodium3").MustInt(50),
	}

	s.Worlds = splitWorlds(match.Key("Worlds").String())
	s.WorldsPVP = splitWorlds(match.Key("WorldsPVP").String())
	if len(s.WorldsPVP) == 0 {
		s.WorldsPVP = s.Worlds
	}
	s.WorldsHell = splitWorlds(match.Key("WorldsHell").String())
	if len(s.WorldsHell) == 0 {
		s.WorldsHell = s.Worlds
	}
	return s
}

func splitWorlds(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	worlds := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			worlds = append(worlds, p)
		}
	}
	return worlds
}

// PostgresDSN builds a pgx connection string from the Postgres* keys. The
// DATABASE_URL environment variable, when set, takes precedence at the
// database layer.
func (s *Settings) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		s.PostgresUser, s.PostgresPass, s.PostgresHost, s.PostgresPort, s.PostgresDB)
}
