package dto

// ── Users ──

// UserResponse is the authenticated user's profile.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ── Mutations ──

// MutationResponse reports a calendar write.
type MutationResponse struct {
	Changed int `json:"changed"`
	Version int `json:"version"`
}
