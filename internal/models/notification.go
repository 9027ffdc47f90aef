package models

import "time"

// Notification type tags carried in Data["type"]
const (
	NotificationTypeMatch          = "match"
	NotificationTypeRequestMatches = "request_matches"
	NotificationTypeMessage        = "message"
)

// Notification is the in-app record of an attempted push
type Notification struct {
	ID        string            `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    string            `gorm:"type:varchar(128);not null;index" json:"userId"`
	Title     string            `gorm:"type:text;not null" json:"title"`
	Body      string            `gorm:"type:text" json:"body"`
	Data      map[string]string `gorm:"type:text;serializer:json" json:"data"`
	Read      bool              `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time         `gorm:"type:datetime;not null;autoCreateTime" json:"createdAt"`
}

// TableName specifies the table name
func (Notification) TableName() string {
	return "notifications"
}
