package models

import (
	"time"

	"gorm.io/datatypes"
)

// RawEvent is one validated client event as persisted by the ingestion workers.
// GameMode and TournamentID are copied out of the payload for game_ended events
// so the aggregators can filter without touching jsonb.
type RawEvent struct {
	ID           string         `json:"id" gorm:"primaryKey;type:varchar(27)"`
	EventType    string         `json:"event_type" gorm:"type:varchar(64);not null;index:idx_events_pending,priority:1"`
	UserID       string         `json:"user_id" gorm:"type:varchar(128);not null;index"`
	SessionID    string         `json:"session_id,omitempty" gorm:"type:varchar(128)"`
	Timestamp    time.Time      `json:"timestamp" gorm:"not null;index"`
	Payload      datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	CountryCode  string         `json:"country_code,omitempty" gorm:"type:varchar(2)"`
	GameMode     string         `json:"game_mode,omitempty" gorm:"type:varchar(32);index:idx_events_pending,priority:3"`
	TournamentID string         `json:"tournament_id,omitempty" gorm:"type:varchar(64)"`
	Processed    bool           `json:"processed" gorm:"not null;default:false;index:idx_events_pending,priority:2"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
	ReceivedAt   time.Time      `json:"received_at" gorm:"autoCreateTime"`
}

func (RawEvent) TableName() string { return "events" }
