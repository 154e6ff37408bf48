package models

import (
	"time"

	"gorm.io/datatypes"
)

type TournamentStatus string

const (
	TournamentUpcoming TournamentStatus = "upcoming"
	TournamentActive   TournamentStatus = "active"
	TournamentEnded    TournamentStatus = "ended"
)

// CanTransition reports whether the lifecycle allows moving from s to next.
// The only legal moves are upcoming -> active -> ended.
func (s TournamentStatus) CanTransition(next TournamentStatus) bool {
	switch s {
	case TournamentUpcoming:
		return next == TournamentActive
	case TournamentActive:
		return next == TournamentEnded
	default:
		return false
	}
}

// PrizeDistribution maps a final rank to its share of the prize pool.
type PrizeDistribution map[int]float64

// Tournament represents a weekly leaderboard competition
type Tournament struct {
	ID                  string                                `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name                string                                `json:"name" gorm:"not null"`
	Status              TournamentStatus                      `json:"status" gorm:"type:varchar(16);not null;default:'upcoming';index"`
	StartDate           time.Time                             `json:"start_date" gorm:"not null;index"`
	EndDate             time.Time                             `json:"end_date" gorm:"not null;index"`
	PrizePool           int64                                 `json:"prize_pool" gorm:"not null;default:0"`
	PrizeDistribution   datatypes.JSONType[PrizeDistribution] `json:"prize_distribution" gorm:"type:jsonb"`
	StartedAt           *time.Time                            `json:"started_at,omitempty"`
	EndedAt             *time.Time                            `json:"ended_at,omitempty"`
	PrizesDistributedAt *time.Time                            `json:"prizes_distributed_at,omitempty"`
	CreatedAt           time.Time                             `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time                             `json:"updated_at" gorm:"autoUpdateTime"`

	// Calculated fields (not stored in DB)
	ParticipantCount int64 `json:"participant_count,omitempty" gorm:"-"`
}

func (t *Tournament) Distribution() PrizeDistribution {
	return t.PrizeDistribution.Data()
}

// TournamentParticipant is a registered player and their running best.
type TournamentParticipant struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	TournamentID string    `json:"tournament_id" gorm:"type:varchar(64);not null;uniqueIndex:uk_participant,priority:1;index:idx_participant_score,priority:1"`
	PlayerID     string    `json:"player_id" gorm:"type:varchar(128);not null;uniqueIndex:uk_participant,priority:2"`
	PlayerName   string    `json:"player_name"`
	BestScore    int64     `json:"best_score" gorm:"not null;default:0;index:idx_participant_score,priority:2,sort:desc"`
	TotalGames   int64     `json:"total_games" gorm:"not null;default:0"`
	FinalRank    int       `json:"final_rank,omitempty" gorm:"default:0"`
	RegisteredAt time.Time `json:"registered_at" gorm:"not null"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// LeaderboardSnapshot freezes a participant's final standing when a tournament ends.
type LeaderboardSnapshot struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	TournamentID string    `json:"tournament_id" gorm:"type:varchar(64);not null;uniqueIndex:uk_snapshot,priority:1"`
	PlayerID     string    `json:"player_id" gorm:"type:varchar(128);not null;uniqueIndex:uk_snapshot,priority:2"`
	PlayerName   string    `json:"player_name"`
	Rank         int       `json:"rank" gorm:"not null"`
	Score        int64     `json:"score" gorm:"not null"`
	TotalGames   int64     `json:"total_games"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}
