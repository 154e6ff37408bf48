package models

import "time"

// Prize is the award owed to one player for one tournament.
// (tournament_id, player_id) is unique, which is what makes prize passes idempotent.
type Prize struct {
	ID             string     `json:"id" gorm:"primaryKey;type:varchar(64)"`
	TournamentID   string     `json:"tournament_id" gorm:"type:varchar(64);not null;uniqueIndex:uk_prize,priority:1"`
	PlayerID       string     `json:"player_id" gorm:"type:varchar(128);not null;uniqueIndex:uk_prize,priority:2;index"`
	PlayerName     string     `json:"player_name"`
	TournamentName string     `json:"tournament_name"`
	Rank           int        `json:"rank" gorm:"not null"`
	Coins          int64      `json:"coins" gorm:"not null;default:0"`
	Gems           int64      `json:"gems" gorm:"not null;default:0"`
	AwardedAt      time.Time  `json:"awarded_at" gorm:"not null;index"`
	ClaimedAt      *time.Time `json:"claimed_at,omitempty"`
}

func (p *Prize) Claimed() bool { return p.ClaimedAt != nil }

type PrizeStats struct {
	TotalPrizes   int64 `json:"total_prizes"`
	ClaimedPrizes int64 `json:"claimed_prizes"`
	PendingPrizes int64 `json:"pending_prizes"`
	TotalCoins    int64 `json:"total_coins"`
	TotalGems     int64 `json:"total_gems"`
	Tournaments   int64 `json:"tournaments"`
}
