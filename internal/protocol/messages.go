// internal/protocol/messages.go
//
// JSON wire messages. Client frames are bare objects tagged by "type";
// Decode turns them into one of the typed inbound structs below so handler
// code can switch exhaustively instead of digging through maps. Server
// frames are either a single object or an "s01" batch wrapping several.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Inbound message types, lobby phase.
type (
	// InputReady (l00) asks the server to place the connection into a match.
	InputReady struct {
		Name    string `json:"name"`
		Team    string `json:"team"`
		Private bool   `json:"private"`
		Skin    int    `json:"skin"`
		GM      int    `json:"gm"`
	}

	// LoginRequest (llg) authenticates against the account store.
	LoginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	// LogoutRequest (llo) destroys the connection's current session token.
	LogoutRequest struct{}

	// RegisterRequest (lrg) creates an account; requires a prior captcha.
	RegisterRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Captcha  string `json:"captcha"`
	}

	// CaptchaRequest (lrc) asks for a fresh challenge image.
	CaptchaRequest struct{}

	// ResumeRequest (lrs) restores a session from a stored token.
	ResumeRequest struct {
		Session string `json:"session"`
	}

	// ProfileUpdate (lpr) patches account fields; nil means "leave alone".
	ProfileUpdate struct {
		Nickname *string `json:"nickname"`
		Squad    *string `json:"squad"`
		Skin     *int    `json:"skin"`
	}

	// PasswordChange (lpc) rehashes the account password.
	PasswordChange struct {
		Password string `json:"password"`
	}
)

// Inbound message types, game phase.
type (
	// IngameReady (g00) acknowledges the "g" state push.
	IngameReady struct{}

	// LoadComplete (g03) acknowledges the world load message.
	LoadComplete struct{}

	// VoteStart (g50) casts the connection's start vote.
	VoteStart struct{}

	// ForceStart (g51) force-starts the match when the code matches.
	ForceStart struct {
		Code string `json:"code"`
	}

	// LevelSelect (gsl) picks a catalog level by name, or "custom" with an
	// inline level blob in Data.
	LevelSelect struct {
		Name string `json:"name"`
		Data string `json:"data"`
	}

	// BanPlayer (gbn) is a dev-only ban by match-local player id.
	BanPlayer struct {
		PID int  `json:"pid"`
		Ban bool `json:"ban"`
	}

	// RenamePlayer (gnm) is a dev-only forced rename.
	RenamePlayer struct {
		PID  int    `json:"pid"`
		Name string `json:"name"`
	}

	// ResquadPlayer (gsq) is a dev-only forced squad change.
	ResquadPlayer struct {
		PID  int    `json:"pid"`
		Name string `json:"name"`
	}
)

// Decode parses a client JSON frame into one of the typed inbound messages.
// An unrecognized "type" is returned as UnknownMessage rather than an error
// so callers can log and ignore it.
func Decode(payload []byte) (interface{}, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &tag); err != nil {
		return nil, fmt.Errorf("malformed json frame: %w", err)
	}

	unmarshal := func(v interface{}) (interface{}, error) {
		if err := json.Unmarshal(payload, v); err != nil {
			return nil, fmt.Errorf("malformed %q frame: %w", tag.Type, err)
		}
		return v, nil
	}

	switch tag.Type {
	case "l00":
		return unmarshal(&InputReady{})
	case "llg":
		return unmarshal(&LoginRequest{})
	case "llo":
		return &LogoutRequest{}, nil
	case "lrg":
		return unmarshal(&RegisterRequest{})
	case "lrc":
		return &CaptchaRequest{}, nil
	case "lrs":
		return unmarshal(&ResumeRequest{})
	case "lpr":
		return unmarshal(&ProfileUpdate{})
	case "lpc":
		return unmarshal(&PasswordChange{})
	case "g00":
		return &IngameReady{}, nil
	case "g03":
		return &LoadComplete{}, nil
	case "g50":
		return &VoteStart{}, nil
	case "g51":
		return unmarshal(&ForceStart{})
	case "gsl":
		return unmarshal(&LevelSelect{})
	case "gbn":
		return unmarshal(&BanPlayer{})
	case "gnm":
		return unmarshal(&RenamePlayer{})
	case "gsq":
		return unmarshal(&ResquadPlayer{})
	default:
		return UnknownMessage{Type: tag.Type}, nil
	}
}

// UnknownMessage carries the tag of a frame the server has no handler for.
type UnknownMessage struct {
	Type string
}

// Outbound messages. Each carries its own "type" tag so any of them can
// travel alone or inside a Batch.
type (
	// StatePush (s00) advertises the connection's new protocol state.
	StatePush struct {
		State string `json:"state"`
		Type  string `json:"type"`
	}

	// LoginSuccess (l01) echoes the accepted identity after l00.
	LoginSuccess struct {
		Name string `json:"name"`
		Team string `json:"team"`
		Type string `json:"type"`
		Skin int    `json:"skin"`
	}

	// WorldLoad (g01) tells the client which world to load. LevelData is the
	// inline level JSON when Game is "custom", empty otherwise.
	WorldLoad struct {
		Game      string `json:"game"`
		LevelData string `json:"levelData,omitempty"`
		Type      string `json:"type"`
	}

	// PlayerList (g12) is the lobby roster broadcast.
	PlayerList struct {
		Players []PlayerInfo `json:"players"`
		Type    string       `json:"type"`
	}

	// PlayerInfo is one roster row. Username is only present for dev viewers.
	PlayerInfo struct {
		ID       int16  `json:"id"`
		Name     string `json:"name"`
		Team     string `json:"team"`
		IsDev    bool   `json:"isDev"`
		IsGuest  bool   `json:"isGuest"`
		Username string `json:"username,omitempty"`
	}

	// StartTimer (g13) carries the remaining start countdown in 30ths of a second.
	StartTimer struct {
		Time int    `json:"time"`
		Type string `json:"type"`
	}

	// Tick (gtk) is the 1 Hz lobby tick so clients can render start progress.
	Tick struct {
		Type            string  `json:"type"`
		Ticks           int     `json:"ticks"`
		Votes           int     `json:"votes"`
		MinPlayers      int     `json:"minPlayers"`
		MaxPlayers      int     `json:"maxPlayers"`
		VoteRateToStart float64 `json:"voteRateToStart"`
	}

	// HurryUp (ghu) gives the client a deadline to finish the run.
	HurryUp struct {
		Type string `json:"type"`
		Time int    `json:"time"`
	}

	// LevelList (gll) enumerates selectable catalog levels.
	LevelList struct {
		Type   string       `json:"type"`
		Levels []LevelEntry `json:"levels"`
	}

	// LevelEntry pairs a level's short display id with its catalog id.
	LevelEntry struct {
		ShortID string `json:"shortId"`
		LongID  string `json:"longId"`
	}

	// LevelSelectResult (gsl) reports a selection back to the room.
	LevelSelectResult struct {
		Type    string `json:"type"`
		Name    string `json:"name"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}

	// Renamed (gnm) announces a forced rename to the match.
	Renamed struct {
		Type string `json:"type"`
		PID  int16  `json:"pid"`
		Name string `json:"name"`
	}

	// Exception (x00) surfaces a server-side error message.
	Exception struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}

	// Batch (s01) wraps several messages into one frame.
	Batch struct {
		Packets []interface{} `json:"packets"`
		Type    string        `json:"type"`
	}

	// StatusReply answers llg/llo/lrg/lrc/lrs/lpr on their own type. Extra
	// fields ride along for the success cases.
	StatusReply map[string]interface{}
)

// State builds an s00 push.
func State(state string) StatePush {
	return StatePush{State: state, Type: "s00"}
}

// NewBatch wraps messages into an s01 envelope.
func NewBatch(msgs ...interface{}) Batch {
	return Batch{Packets: msgs, Type: "s01"}
}

// Reply builds a StatusReply for the given request type.
func Reply(typ string, status bool) StatusReply {
	return StatusReply{"type": typ, "status": status}
}

// Fail builds a failed StatusReply with a user-facing message.
func Fail(typ, msg string) StatusReply {
	return StatusReply{"type": typ, "status": false, "msg": msg}
}
