package models

// LeaderboardRow is one entry of the coin leaderboard snapshot written to
// LeaderBoardPath. Rows are ordered by coins, descending.
type LeaderboardRow struct {
	Nickname string `json:"nickname"`
	Squad    string `json:"squad"`
	Wins     int    `json:"wins"`
	Coins    int    `json:"coins"`
}
