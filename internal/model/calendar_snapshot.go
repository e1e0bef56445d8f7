package model

import (
	"time"

	"gorm.io/datatypes"
)

// CalendarSnapshot: calendar_snapshots. Data is the persisted status map
// ({"YYYY-MM-DD": "LEAVE" | {"am": .., "pm": ..}}), one row per user.
type CalendarSnapshot struct {
	UserID    string         `gorm:"type:uuid;primaryKey"               json:"user_id"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"   json:"data"`
	Version   int            `gorm:"not null;default:1"                 json:"version"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CalendarSnapshot) TableName() string { return "calendar_snapshots" }
