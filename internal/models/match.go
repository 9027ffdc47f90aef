package models

import "time"

// Match links a listing to a request it satisfies. One row per pair.
type Match struct {
	RequestID string    `gorm:"type:varchar(64);primaryKey" json:"requestId"`
	ListingID string    `gorm:"type:varchar(64);primaryKey" json:"listingId"`
	MatchedAt time.Time `gorm:"type:datetime;not null" json:"matchedAt"`
	Distance  float64   `gorm:"not null" json:"distance"`
	Score     int       `gorm:"not null" json:"score"`
}

// TableName specifies the table name
func (Match) TableName() string {
	return "request_matches"
}

// Key identifies the match inside its request
func (m Match) Key() string {
	return m.RequestID + "/" + m.ListingID
}
