package models

import "time"

// PlayerProfile is the small amount of player identity this service owns.
type PlayerProfile struct {
	PlayerID    string    `json:"player_id" gorm:"primaryKey;type:varchar(128)"`
	Nickname    string    `json:"nickname,omitempty" gorm:"type:varchar(50)"`
	CountryCode string    `json:"country_code,omitempty" gorm:"type:varchar(2)"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
