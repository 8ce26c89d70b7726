package domain

import "time"

type Plan string

const (
	PlanTrial      Plan = "trial"
	PlanStarter    Plan = "starter"
	PlanGrowth     Plan = "growth"
	PlanEnterprise Plan = "enterprise"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanTrial, PlanStarter, PlanGrowth, PlanEnterprise:
		return true
	default:
		return false
	}
}

// User is created on first identity sync and never hard-deleted. Credits
// only change through conditional SQL increments in the repository layer.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ExternalID string    `gorm:"uniqueIndex;size:191;not null" json:"external_id"`
	Email      string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Credits    int       `gorm:"not null;default:0;check:chk_users_credits_non_negative,credits >= 0" json:"credits"`
	Plan       Plan      `gorm:"size:32;not null;default:trial" json:"plan"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
