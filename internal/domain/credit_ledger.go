package domain

import "time"

const (
	CreditEntryTrialGrant = "trial_grant"
	CreditEntryScanDebit  = "scan_debit"
	CreditEntryPurchase   = "purchase"
	CreditEntryAdminGrant = "admin_grant"
)

// CreditLedgerEntry is an append-only audit row written next to every
// balance mutation. Amount is signed: debits are negative.
type CreditLedgerEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	EntryType    string    `gorm:"size:32;not null;index" json:"entry_type"`
	Amount       int       `gorm:"not null" json:"amount"`
	BalanceAfter int       `gorm:"not null" json:"balance_after"`
	Reference    string    `gorm:"size:191;index" json:"reference,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
