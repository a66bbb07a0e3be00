package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BidStatus string

const (
	BidActive BidStatus = "active"
	BidWon    BidStatus = "won"
	BidLost   BidStatus = "lost"
)

// Bid is a bidder's offer on a product. HeldAmount is the part of the
// bidder's funds currently held against this bid; it drops to zero once the
// funds are moved to a newer leading bid or refunded.
type Bid struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	ProductID  string          `gorm:"size:36;not null;index" json:"productId"`
	BidderID   string          `gorm:"size:36;not null;index" json:"bidderId"`
	Amount     decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"amount"`
	HeldAmount decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"heldAmount"`
	Status     BidStatus       `gorm:"size:16;not null;index" json:"status"`
	CreatedAt  time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Bid) TableName() string { return "bid" }

// Outranks reports whether b beats o for the winning position: higher amount
// first, then the earlier bid, then the lower id.
func (b *Bid) Outranks(o *Bid) bool {
	if c := b.Amount.Cmp(o.Amount); c != 0 {
		return c > 0
	}
	if !b.CreatedAt.Equal(o.CreatedAt) {
		return b.CreatedAt.Before(o.CreatedAt)
	}
	return b.ID < o.ID
}
