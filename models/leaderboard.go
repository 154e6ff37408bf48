package models

import "time"

const ScopeGlobal = "global"

// TournamentScope is the leaderboard scope that mirrors a tournament's scores.
func TournamentScope(tournamentID string) string {
	return "tournament:" + tournamentID
}

// LeaderboardEntry keeps one player's best score within a scope.
// high_score only ever grows.
type LeaderboardEntry struct {
	ID         uint      `json:"-" gorm:"primaryKey"`
	PlayerID   string    `json:"player_id" gorm:"type:varchar(128);not null;uniqueIndex:uk_leaderboard_player_scope,priority:1"`
	Scope      string    `json:"scope" gorm:"type:varchar(96);not null;uniqueIndex:uk_leaderboard_player_scope,priority:2;index:idx_leaderboard_scope_score,priority:1"`
	HighScore  int64     `json:"high_score" gorm:"not null;default:0;index:idx_leaderboard_scope_score,priority:2,sort:desc"`
	TotalGames int64     `json:"total_games" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// RankedEntry is a leaderboard row as served to clients.
type RankedEntry struct {
	Rank       int64     `json:"rank"`
	PlayerID   string    `json:"player_id"`
	Nickname   string    `json:"nickname,omitempty"`
	HighScore  int64     `json:"high_score"`
	TotalGames int64     `json:"total_games"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ScoreRecord is an accepted score. The anti-cheat velocity check reads these.
type ScoreRecord struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	PlayerID       string    `json:"player_id" gorm:"type:varchar(128);not null;index:idx_score_history_player,priority:1"`
	TournamentID   string    `json:"tournament_id,omitempty" gorm:"type:varchar(64)"`
	Score          int64     `json:"score" gorm:"not null"`
	SurvivalTimeMs int64     `json:"survival_time_ms"`
	Source         string    `json:"source" gorm:"type:varchar(16)"`
	RecordedAt     time.Time `json:"recorded_at" gorm:"not null;index:idx_score_history_player,priority:2,sort:desc"`
}

func (ScoreRecord) TableName() string { return "score_history" }

const (
	ScoreSourceEvent      = "event"
	ScoreSourceTournament = "tournament"
)
