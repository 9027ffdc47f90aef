package models

import "time"

// User is owned by the auth/profile collaborators; the matcher only reads the
// display name and stamps LastActive.
type User struct {
	ID         string     `gorm:"type:varchar(128);primaryKey" json:"id"`
	FirstName  string     `gorm:"type:varchar(100)" json:"firstName,omitempty"`
	LastActive *time.Time `gorm:"type:datetime" json:"lastActive,omitempty"`
	CreatedAt  time.Time  `gorm:"type:datetime;not null;index" json:"createdAt"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// PushToken is one push registration of a user's device
type PushToken struct {
	UserID    string    `gorm:"type:varchar(128);primaryKey" json:"userId"`
	Token     string    `gorm:"type:varchar(255);primaryKey" json:"token"`
	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime" json:"createdAt"`
}

// TableName specifies the table name
func (PushToken) TableName() string {
	return "push_tokens"
}
