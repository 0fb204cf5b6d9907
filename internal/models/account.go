package models

import "github.com/google/uuid"

// Account is a registered player row. Salt and PwdHash never leave the
// database layer.
type Account struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Salt     string    `json:"-"`
	PwdHash  string    `json:"-"`
	Nickname string    `json:"nickname"`
	Skin     int       `json:"skin"`
	Squad    string    `json:"squad"`

	IsDev    bool `json:"is_dev"`
	IsBanned bool `json:"is_banned"`

	Wins   int `json:"wins"`
	Deaths int `json:"deaths"`
	Kills  int `json:"kills"`
	Coins  int `json:"coins"`
}

// AccountSummary is the client-facing slice of an account, embedded in
// login, resume and profile replies.
type AccountSummary struct {
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Skin     int    `json:"skin"`
	Squad    string `json:"squad"`
	IsDev    bool   `json:"isDev"`
	Coins    int    `json:"coins"`
}

// Summary projects the account into its client-facing form.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		Username: a.Username,
		Nickname: a.Nickname,
		Skin:     a.Skin,
		Squad:    a.Squad,
		IsDev:    a.IsDev,
		Coins:    a.Coins,
	}
}

// StatsDelta accumulates per-round counters for one account. Persisted
// additively at round end; a negative coin total clamps at zero.
type StatsDelta struct {
	Wins   int
	Deaths int
	Kills  int
	Coins  int
}

// IsZero reports whether there is anything to persist.
func (d StatsDelta) IsZero() bool {
	return d.Wins == 0 && d.Deaths == 0 && d.Kills == 0 && d.Coins == 0
}
