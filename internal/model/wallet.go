package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's spendable balance. One per user, created lazily.
type Wallet struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	UserID          string          `gorm:"size:36;not null;uniqueIndex" json:"userId"`
	Balance         decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"balance"`
	Version         uint64          `gorm:"not null;default:0" json:"-"`
	LastTransaction *time.Time      `json:"lastTransaction,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Wallet) TableName() string { return "wallet" }

// HasSufficientFunds reports whether amt can be debited.
func (w *Wallet) HasSufficientFunds(amt decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amt)
}
