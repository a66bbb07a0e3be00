package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxDeposit         TxType = "deposit"
	TxWithdrawal      TxType = "withdrawal"
	TxBid             TxType = "bid"
	TxBidRefund       TxType = "bid_refund"
	TxAuctionWin      TxType = "auction_win"
	TxAuctionRefund   TxType = "auction_refund"
	TxAdminAdjustment TxType = "admin_adjustment"
)

// Valid reports whether t is a known ledger entry type.
func (t TxType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxBid, TxBidRefund, TxAuctionWin, TxAuctionRefund, TxAdminAdjustment:
		return true
	}
	return false
}

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
	TxCancelled TxStatus = "cancelled"
)

// Transaction is an immutable ledger entry. Amount is signed, negative for debits.
// (RelatedBidID, Type) is unique; NULL bid references never collide.
type Transaction struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	WalletID         string          `gorm:"size:36;not null;index" json:"walletId"`
	UserID           string          `gorm:"size:36;not null;index" json:"userId"`
	Type             TxType          `gorm:"size:32;not null;uniqueIndex:idx_tx_bid_type,priority:2" json:"type"`
	Amount           decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"amount"`
	BalanceBefore    decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"balanceBefore"`
	BalanceAfter     decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"balanceAfter"`
	Description      string          `gorm:"size:255" json:"description"`
	Status           TxStatus        `gorm:"size:16;not null;default:completed" json:"status"`
	PaymentMethod    string          `gorm:"size:32" json:"paymentMethod,omitempty"`
	RelatedProductID *string         `gorm:"size:36;index" json:"relatedProductId,omitempty"`
	RelatedBidID     *string         `gorm:"size:36;uniqueIndex:idx_tx_bid_type,priority:1" json:"relatedBidId,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (Transaction) TableName() string { return "transaction" }
