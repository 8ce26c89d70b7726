package domain

import "time"

type IdempotencyRecord struct {
	ID              uint      `gorm:"primaryKey"`
	Scope           string    `gorm:"size:128;not null;uniqueIndex:ux_idempotency_scope_key,priority:1"`
	IdempotencyKey  string    `gorm:"size:128;not null;uniqueIndex:ux_idempotency_scope_key,priority:2"`
	FingerprintHash string    `gorm:"size:64;not null"`
	Status          string    `gorm:"size:16;not null"`
	ResponseStatus  int       `gorm:"not null;default:0"`
	ResponseBody    []byte
	ContentType     string    `gorm:"size:128"`
	ExpiresAt       time.Time `gorm:"not null;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
