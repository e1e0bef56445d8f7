package model

import "time"

// Team member roles.
const (
	TeamRoleOwner  = "owner"
	TeamRoleMember = "member"
)

// Team: teams
type Team struct {
	TeamID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"team_id"`
	Name    string `gorm:"type:varchar(100);not null"                     json:"name"`
	OwnerID string `gorm:"type:uuid;not null"                             json:"owner_id"`
	VersionedModel

	Members []TeamMember `gorm:"foreignKey:TeamID;references:TeamID" json:"members,omitempty"`
}

func (Team) TableName() string { return "teams" }

// TeamMember: team_members, one row per (team, user).
type TeamMember struct {
	TeamID   string    `gorm:"type:uuid;primaryKey"                       json:"team_id"`
	UserID   string    `gorm:"type:uuid;primaryKey"                       json:"user_id"`
	Role     string    `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	JoinedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"         json:"joined_at"`
	BaseModel

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
	Team *Team `gorm:"foreignKey:TeamID;references:TeamID" json:"team,omitempty"`
}

func (TeamMember) TableName() string { return "team_members" }
