package models

import (
	"time"

	"gorm.io/gorm"
)

// GTINLength is the fixed number of digits in a product code.
const GTINLength = 14

// Product is a catalog entry owned by exactly one user.
type Product struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	GTIN        string `gorm:"column:gtin;size:14;uniqueIndex;not null" json:"gtin"`
	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text;not null" json:"description"`

	Category      *int64 `json:"category"`
	Type          *int64 `json:"type"`
	PackagingType *int64 `json:"packagingType"`
	TempUnits     *int64 `json:"tempUnits"`

	Height              string `json:"height"`
	Width               string `json:"width"`
	Depth               string `json:"depth"`
	Weight              string `json:"weight"`
	MinTemp             string `json:"minTemp"`
	MaxTemp             string `json:"maxTemp"`
	StorageInstructions string `gorm:"type:text" json:"storageInstructions"`

	// Image is the blob key, not a URL.
	Image       *string `json:"image"`
	Subscribers []int64 `gorm:"serializer:json;type:text" json:"subscribers"`

	DateAdded     time.Time  `gorm:"not null" json:"dateAdded"`
	DatePublished *time.Time `json:"datePublished"`
	DateInactive  *time.Time `json:"dateInactive"`
	DateModified  *time.Time `json:"dateModified"`

	OwnerID string `gorm:"size:36;index;not null" json:"owner"`
	Owner   *User  `gorm:"foreignKey:OwnerID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// SetSubscribers replaces the subscriber list and keeps DatePublished in
// step with it: set when the list becomes non-empty, cleared when it empties.
func (p *Product) SetSubscribers(subs []int64, now time.Time) {
	wasPublished := len(p.Subscribers) > 0
	p.Subscribers = append([]int64{}, subs...)
	switch {
	case len(p.Subscribers) == 0:
		p.DatePublished = nil
	case !wasPublished || p.DatePublished == nil:
		t := now
		p.DatePublished = &t
	}
}

// Touch stamps DateModified.
func (p *Product) Touch(now time.Time) {
	t := now
	p.DateModified = &t
}

// ProductRef is one entry in a user's product reference set.
// The database refuses to drop a product or user that a reference still
// points at.
type ProductRef struct {
	UserID    string   `gorm:"primaryKey;size:36"`
	ProductID string   `gorm:"primaryKey;size:36;uniqueIndex"`
	Product   *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
}
