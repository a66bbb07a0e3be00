package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductPending  ProductStatus = "pending"
	ProductActive   ProductStatus = "active"
	ProductEnded    ProductStatus = "ended"
	ProductRejected ProductStatus = "rejected"
)

// Product is an auction listing. CurrentPrice only moves up while active and
// WinnerID is set only by settlement.
type Product struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	Title         string          `gorm:"size:200;not null" json:"title"`
	Description   string          `gorm:"type:text" json:"description"`
	Category      string          `gorm:"size:64;index" json:"category"`
	StartingPrice decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"startingPrice"`
	CurrentPrice  decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"currentPrice"`
	DurationHours int             `gorm:"not null" json:"duration"`
	StartTime     *time.Time      `json:"startTime,omitempty"`
	EndTime       *time.Time      `gorm:"index" json:"endTime,omitempty"`
	Status        ProductStatus   `gorm:"size:16;not null;index" json:"status"`
	VendorID      string          `gorm:"size:36;not null;index" json:"vendorId"`
	WinnerID      *string         `gorm:"size:36" json:"winnerId,omitempty"`
	AdminRemarks  string          `gorm:"size:500" json:"adminRemarks,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Product) TableName() string { return "product" }

// Expired reports whether an active auction is past its end time.
func (p *Product) Expired(now time.Time) bool {
	return p.Status == ProductActive && p.EndTime != nil && p.EndTime.Before(now)
}
