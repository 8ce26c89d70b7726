package domain

import "time"

// Payment rows are keyed by the provider reference. Processed flips to true
// exactly once, in the same transaction that credits the owner.
type Payment struct {
	ID             uint       `gorm:"primaryKey" json:"-"`
	Reference      string     `gorm:"size:100;not null;uniqueIndex" json:"reference"`
	UserID         uint       `gorm:"not null;index" json:"-"`
	Email          string     `gorm:"size:255;not null" json:"email"`
	Amount         int64      `gorm:"not null" json:"amount"`
	Currency       string     `gorm:"size:3;not null" json:"currency"`
	Credits        int        `gorm:"not null" json:"credits"`
	ProviderStatus string     `gorm:"size:32;not null" json:"provider_status"`
	Processed      bool       `gorm:"not null;default:false;index" json:"processed"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	RawPayload     []byte     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
