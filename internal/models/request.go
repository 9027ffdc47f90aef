package models

import "time"

// DefaultSearchRadiusKm applies when a request has no radius of its own
const DefaultSearchRadiusKm = 10.0

// Request is a standing search query from a user
type Request struct {
	ID              string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID          string          `gorm:"type:varchar(128);not null;index" json:"userId"`
	TransactionType TransactionType `gorm:"type:varchar(10);not null;index:idx_requests_match,priority:2" json:"transactionType"`
	PropertyType    PropertyType    `gorm:"type:varchar(20);not null;index:idx_requests_match,priority:3" json:"propertyType"`
	BudgetMin       int64           `gorm:"not null;index:idx_requests_match,priority:4" json:"budgetMin"`
	BudgetMax       int64           `gorm:"not null" json:"budgetMax"`
	Location        *GeoPoint       `gorm:"type:text;serializer:json" json:"location,omitempty"`

	// SearchRadius in kilometers; zero means DefaultSearchRadiusKm
	SearchRadius float64 `gorm:"not null;default:0" json:"searchRadius,omitempty"`

	Active    bool      `gorm:"not null;default:true;index:idx_requests_match,priority:1" json:"active"`
	CreatedAt time.Time `gorm:"type:datetime;not null;index" json:"createdAt"`
}

// TableName specifies the table name
func (Request) TableName() string {
	return "requests"
}

// HasLocation reports whether the request carries coordinates
func (r *Request) HasLocation() bool {
	return r.Location != nil
}

// RadiusKm returns the effective search radius, falling back to def when unset
func (r *Request) RadiusKm(def float64) float64 {
	if r.SearchRadius > 0 {
		return r.SearchRadius
	}
	if def > 0 {
		return def
	}
	return DefaultSearchRadiusKm
}

// Accepts reports whether price lies inside the request's budget (inclusive)
func (r *Request) Accepts(price int64) bool {
	return r.BudgetMin <= price && price <= r.BudgetMax
}
