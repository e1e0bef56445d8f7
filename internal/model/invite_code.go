package model

import "time"

// InviteCode: invite_codes. MaxUses 0 means unlimited.
type InviteCode struct {
	InviteCodeID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"invite_code_id"`
	TeamID       string     `gorm:"type:uuid;not null;index"                       json:"team_id"`
	Code         string     `gorm:"type:varchar(50);not null;uniqueIndex"          json:"code"`
	ExpiresAt    time.Time  `gorm:"not null"                                       json:"expires_at"`
	MaxUses      int        `gorm:"not null;default:0"                             json:"max_uses"`
	UseCount     int        `gorm:"not null;default:0"                             json:"use_count"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	UsedBy       *string    `gorm:"type:uuid"                                      json:"used_by,omitempty"`
	VersionedModel

	Team *Team `gorm:"foreignKey:TeamID;references:TeamID" json:"team,omitempty"`
}

func (InviteCode) TableName() string { return "invite_codes" }

// Exhausted reports a code that reached MaxUses.
func (c *InviteCode) Exhausted() bool {
	return c.MaxUses > 0 && c.UseCount >= c.MaxUses
}

// Expired reports a code past its expiry at now.
func (c *InviteCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
