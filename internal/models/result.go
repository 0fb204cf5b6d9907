package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchResult records one finished round. The live server queues these to
// Redis and the historian drains them into Postgres.
type MatchResult struct {
	MatchID     uuid.UUID `json:"match_id"`
	World       string    `json:"world"`
	Mode        string    `json:"mode"`
	Private     bool      `json:"private"`
	WinnerName  string    `json:"winner_name"`
	WinnerUser  string    `json:"winner_username,omitempty"`
	PlayerCount int       `json:"player_count"`
	FinishedAt  time.Time `json:"finished_at"`
}
