package model

// User mirrors the identity provider's account: the id is the token
// subject, name and email are refreshed on every authenticated request.
type User struct {
	UserID string `gorm:"type:uuid;primaryKey"        json:"user_id"`
	Name   string `gorm:"type:varchar(100);not null" json:"name"`
	Email  string `gorm:"type:varchar(255);not null" json:"email"`
	BaseModel
}

func (User) TableName() string { return "users" }
