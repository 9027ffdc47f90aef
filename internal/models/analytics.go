package models

import "time"

// Collection names a countable entity set
type Collection string

const (
	CollectionUsers    Collection = "users"
	CollectionListings Collection = "listings"
	CollectionRequests Collection = "requests"
)

// DailyAnalytics holds new-entity counts for one calendar day
type DailyAnalytics struct {
	ID          string    `gorm:"type:varchar(32);primaryKey" json:"id"`
	Date        time.Time `gorm:"type:date;not null" json:"date"`
	NewUsers    int64     `gorm:"not null" json:"newUsers"`
	NewListings int64     `gorm:"not null" json:"newListings"`
	NewRequests int64     `gorm:"not null" json:"newRequests"`
	GeneratedAt time.Time `gorm:"type:datetime;not null" json:"generatedAt"`
}

// TableName specifies the table name
func (DailyAnalytics) TableName() string {
	return "analytics"
}

// DailyAnalyticsID returns the record key for day, e.g. "daily_2024-05-01"
func DailyAnalyticsID(day time.Time) string {
	return "daily_" + day.Format("2006-01-02")
}
