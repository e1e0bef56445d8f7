package dto

// ── Teams ──

type CreateTeamRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
}

type RenameTeamRequest struct {
	Name    string `json:"name"    binding:"required,min=2,max=100"`
	Version int    `json:"version" binding:"required,min=1"`
}

// TransferOwnershipRequest hands the team to another member.
type TransferOwnershipRequest struct {
	UserID  string `json:"user_id" binding:"required,uuid"`
	Version int    `json:"version" binding:"required,min=1"`
}

type TeamResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OwnerID     string `json:"owner_id"`
	Role        string `json:"role"`
	MemberCount int64  `json:"member_count"`
	Version     int    `json:"version"`
	CreatedAt   string `json:"created_at"`
}

type TeamMemberResponse struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}

// ── Invites ──

// GenerateInviteRequest zero values fall back to config defaults.
type GenerateInviteRequest struct {
	TTLHours int `json:"ttl_hours" binding:"omitempty,min=1,max=720"`
	MaxUses  int `json:"max_uses"  binding:"omitempty,min=0,max=1000"`
}

type InviteResponse struct {
	ID         string `json:"id"`
	InviteCode string `json:"invite_code"`
	InviteURL  string `json:"invite_url"`
	ExpiresAt  string `json:"expires_at"`
	MaxUses    int    `json:"max_uses"`
	UseCount   int    `json:"use_count"`
}

type InviteValidateResponse struct {
	Valid     bool   `json:"valid"`
	TeamName  string `json:"team_name,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

type JoinTeamRequest struct {
	Code string `json:"code" binding:"required,min=6,max=50"`
}

// ── Team statistics ──

type MemberStatsResponse struct {
	UserID      string             `json:"user_id"`
	Name        string             `json:"name"`
	WorkedDays  float64            `json:"worked_days"`
	Counts      map[string]float64 `json:"counts"`
	Percentages map[string]float64 `json:"percentages"`
}
