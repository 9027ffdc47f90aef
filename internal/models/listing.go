package models

import "time"

// TransactionType is the kind of deal a listing offers or a request looks for
type TransactionType string

const (
	TransactionSale TransactionType = "sale"
	TransactionRent TransactionType = "rent"
)

// PropertyType is the category of a property
type PropertyType string

const (
	PropertyApartment PropertyType = "apartment"
	PropertyHouse     PropertyType = "house"
	PropertyVilla     PropertyType = "villa"
	PropertyLand      PropertyType = "land"
	PropertyOffice    PropertyType = "office"
	PropertyShop      PropertyType = "shop"
	PropertyWarehouse PropertyType = "warehouse"
	PropertyRoom      PropertyType = "room"
)

// ListingStatus is the lifecycle state of a listing
type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "active"
	ListingStatusInactive ListingStatus = "inactive"
	ListingStatusExpired  ListingStatus = "expired"
	ListingStatusSold     ListingStatus = "sold"
	ListingStatusRented   ListingStatus = "rented"
	ListingStatusDraft    ListingStatus = "draft"
)

// GeoPoint is a coordinate with an optional free-text address
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Listing is a property offered for sale or rent
type Listing struct {
	ID              string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID          string          `gorm:"type:varchar(128);not null;index" json:"userId"`
	TransactionType TransactionType `gorm:"type:varchar(10);not null;index:idx_listings_match,priority:2" json:"transactionType"`
	PropertyType    PropertyType    `gorm:"type:varchar(20);not null;index:idx_listings_match,priority:3" json:"propertyType"`
	Price           int64           `gorm:"not null;index:idx_listings_match,priority:4" json:"price"`

	// Location is nil when the publisher did not provide coordinates
	Location *GeoPoint `gorm:"type:text;serializer:json" json:"location,omitempty"`

	Status    ListingStatus `gorm:"type:varchar(20);not null;default:'active';index:idx_listings_match,priority:1;index:idx_listings_stale,priority:1" json:"status"`
	CreatedAt time.Time     `gorm:"type:datetime;not null;index" json:"createdAt"`
	UpdatedAt time.Time     `gorm:"type:datetime;not null;index:idx_listings_stale,priority:2" json:"updatedAt"`
}

// TableName specifies the table name
func (Listing) TableName() string {
	return "listings"
}

// IsActive reports whether the listing takes part in matching
func (l *Listing) IsActive() bool {
	return l.Status == ListingStatusActive
}

// HasLocation reports whether the listing carries coordinates
func (l *Listing) HasLocation() bool {
	return l.Location != nil
}

// Address returns the free-text address, or an empty string
func (l *Listing) Address() string {
	if l.Location == nil {
		return ""
	}
	return l.Location.Address
}
