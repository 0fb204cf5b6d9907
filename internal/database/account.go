// internal/database/account.go
package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openroyale/royaled/internal/auth"
	"github.com/openroyale/royaled/internal/models"
)

// Client-facing failure messages. Handlers send err.Error() verbatim, so
// the wording here is part of the protocol.
var (
	ErrAccountsDisabled   = errors.New("account system disabled")
	ErrUsernameTooShort   = errors.New("username too short")
	ErrUsernameTooLong    = errors.New("username too long")
	ErrUsernameIllegal    = errors.New("illegal character in username")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrPasswordTooLong    = errors.New("password too long")
	ErrUsernameTaken      = errors.New("account already registered")
	ErrNicknameNotAllowed = errors.New("nickname not allowed")
	ErrRegisterFailed     = errors.New("failed to save account")
	ErrInvalidCredentials = errors.New("invalid user name or password")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrNicknameInUse      = errors.New("nickname already in use")
	ErrUpdateFailed       = errors.New("failed to save to database")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

const accountColumns = `id, username, salt, pwdhash, nickname, skin, squad, is_dev, is_banned, wins, deaths, kills, coins`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.Username, &a.Salt, &a.PwdHash, &a.Nickname,
		&a.Skin, &a.Squad, &a.IsDev, &a.IsBanned,
		&a.Wins, &a.Deaths, &a.Kills, &a.Coins,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// validateRegistration runs the length and charset checks in the order
// their messages are expected by clients.
func validateRegistration(username, password string) error {
	if len(username) < 3 {
		return ErrUsernameTooShort
	}
	if len(username) > 20 {
		return ErrUsernameTooLong
	}
	if !usernamePattern.MatchString(username) {
		return ErrUsernameIllegal
	}
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	if len(password) > 120 {
		return ErrPasswordTooLong
	}
	return nil
}

// Register creates an account. The nickname starts out equal to the
// username, so the username itself must pass the nickname screen.
func Register(ctx context.Context, username, password string, nicknameAllowed func(string) bool) (*models.Account, error) {
	if DB == nil {
		return nil, ErrAccountsDisabled
	}
	if err := validateRegistration(username, password); err != nil {
		return nil, err
	}

	var count int
	if err := DB.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE username=$1`, username).Scan(&count); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}
	if !nicknameAllowed(username) {
		return nil, ErrNicknameNotAllowed
	}

	salt, err := auth.GenerateAccountSalt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	hash, err := auth.HashPassword(password, salt)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := &models.Account{
		ID:       uuid.New(),
		Username: username,
		Salt:     salt,
		PwdHash:  hash,
		Nickname: username,
		Skin:     0,
		Squad:    "",
	}

	q := `INSERT INTO accounts (id, username, salt, pwdhash, nickname, skin, squad)
	      VALUES ($1, $2, $3, $4, $5, $6, $7)`

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			acc.ID, acc.Username, acc.Salt, acc.PwdHash, acc.Nickname, acc.Skin, acc.Squad,
		)
		return execErr
	})
	if err != nil {
		return nil, ErrRegisterFailed
	}
	return acc, nil
}

// Login verifies credentials. Every rejection reads the same so usernames
// cannot be probed.
func Login(ctx context.Context, username, password string) (*models.Account, error) {
	if DB == nil {
		return nil, ErrAccountsDisabled
	}
	if len(username) < 3 || len(username) > 20 || len(password) < 8 || len(password) > 120 {
		return nil, ErrInvalidCredentials
	}

	acc, err := AccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.VerifyPassword(password, acc.Salt, acc.PwdHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

func AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	if DB == nil {
		return nil, ErrAccountsDisabled
	}
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE username=$1`
	return scanAccount(DB.QueryRow(ctx, q, username))
}

func AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if DB == nil {
		return nil, ErrAccountsDisabled
	}
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	return scanAccount(DB.QueryRow(ctx, q, id))
}

// ProfilePatch carries the optional lpr fields; nil means "leave as is".
type ProfilePatch struct {
	Nickname *string
	Squad    *string
	Skin     *int
}

// UpdateProfile applies a profile patch. On success it returns the applied
// changes; on failure it returns the account's current values so the client
// can roll its UI back.
func UpdateProfile(ctx context.Context, username string, patch ProfilePatch, nicknameAllowed func(string) bool) (changes, rollback map[string]interface{}, err error) {
	if DB == nil {
		return nil, map[string]interface{}{}, ErrAccountsDisabled
	}

	acc, err := AccountByUsername(ctx, username)
	if err != nil {
		return nil, map[string]interface{}{}, ErrInvalidAccount
	}
	rollback = map[string]interface{}{
		"nickname": acc.Nickname,
		"squad":    acc.Squad,
		"skin":     acc.Skin,
	}
	changes = map[string]interface{}{}

	setNickname := false
	if patch.Nickname != nil && len(*patch.Nickname) <= 50 && *patch.Nickname != acc.Nickname {
		if !acc.IsDev && !nicknameAllowed(*patch.Nickname) {
			return nil, rollback, ErrNicknameNotAllowed
		}
		var dupes int
		if err := DB.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE nickname=$1`, *patch.Nickname).Scan(&dupes); err != nil {
			return nil, rollback, ErrUpdateFailed
		}
		if dupes > 0 {
			return nil, rollback, ErrNicknameInUse
		}
		setNickname = true
	}

	if setNickname {
		acc.Nickname = *patch.Nickname
		changes["nickname"] = acc.Nickname
	}
	if patch.Squad != nil {
		squad := *patch.Squad
		if len(squad) > 3 {
			squad = squad[:3]
		}
		acc.Squad = squad
		changes["squad"] = squad
	}
	if patch.Skin != nil {
		acc.Skin = *patch.Skin
		changes["skin"] = acc.Skin
	}

	q := `UPDATE accounts SET nickname=$1, squad=$2, skin=$3 WHERE id=$4`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, acc.Nickname, acc.Squad, acc.Skin, acc.ID)
		return execErr
	})
	if err != nil {
		return nil, rollback, ErrUpdateFailed
	}
	return changes, nil, nil
}

// ChangePassword re-salts and re-hashes. Length violations are silently
// ignored; lpc sends no reply either way.
func ChangePassword(ctx context.Context, username, password string) error {
	if DB == nil {
		return nil
	}
	if len(password) < 8 || len(password) > 120 {
		return nil
	}

	acc, err := AccountByUsername(ctx, username)
	if err != nil {
		return nil
	}

	salt, err := auth.GenerateAccountSalt()
	if err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	hash, err := auth.HashPassword(password, salt)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	q := `UPDATE accounts SET salt=$1, pwdhash=$2 WHERE id=$3`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, salt, hash, acc.ID)
		return execErr
	})
}

// StatsFlush is everything the close path may need to persist for one
// account.
type StatsFlush struct {
	Delta     models.StatsDelta
	SetBanned bool
	Renamed   bool
	Nickname  string
	Squad     string
}

// buildStatsQuery assembles the dynamic UPDATE for a flush. Returns false
// when there is nothing to persist.
func buildStatsQuery(accountID uuid.UUID, f StatsFlush) (string, []interface{}, bool) {
	var sets []string
	var args []interface{}
	add := func(expr string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}

	if f.Delta.Wins > 0 {
		add("wins = wins + $%d", f.Delta.Wins)
	}
	if f.Delta.Deaths > 0 {
		add("deaths = deaths + $%d", f.Delta.Deaths)
	}
	if f.Delta.Kills > 0 {
		add("kills = kills + $%d", f.Delta.Kills)
	}
	if f.Delta.Coins != 0 {
		add("coins = GREATEST(coins + $%d, 0)", f.Delta.Coins)
	}
	if f.SetBanned {
		sets = append(sets, "is_banned = TRUE")
	}
	if f.Renamed {
		add("nickname = $%d", f.Nickname)
		add("squad = $%d", f.Squad)
	}
	if len(sets) == 0 {
		return "", nil, false
	}

	args = append(args, accountID)
	q := fmt.Sprintf("UPDATE accounts SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	return q, args, true
}

// FlushStats applies a close-time flush additively. Coin totals never go
// below zero.
func FlushStats(ctx context.Context, accountID uuid.UUID, f StatsFlush) error {
	if DB == nil {
		return nil
	}
	q, args, ok := buildStatsQuery(accountID, f)
	if !ok {
		return nil
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, args...)
		return err
	})
}

// LeaderboardSize is how many rows the coin leaderboard snapshot holds.
const LeaderboardSize = 20

// Leaderboard returns the top accounts by coins.
func Leaderboard(ctx context.Context) ([]models.LeaderboardRow, error) {
	if DB == nil {
		return nil, ErrAccountsDisabled
	}
	q := `SELECT nickname, squad, wins, coins FROM accounts ORDER BY coins DESC, nickname ASC LIMIT $1`
	rows, err := DB.Query(ctx, q, LeaderboardSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var board []models.LeaderboardRow
	for rows.Next() {
		var r models.LeaderboardRow
		if err := rows.Scan(&r.Nickname, &r.Squad, &r.Wins, &r.Coins); err != nil {
			return nil, err
		}
		board = append(board, r)
	}
	return board, rows.Err()
}
