package model

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotifyBidPlaced        NotificationType = "bid_placed"
	NotifyOutbid           NotificationType = "outbid"
	NotifyAuctionWon       NotificationType = "auction_won"
	NotifyAuctionLost      NotificationType = "auction_lost"
	NotifyAuctionEnded     NotificationType = "auction_ended"
	NotifyAuctionApproved  NotificationType = "auction_approved"
	NotifyAuctionRejected  NotificationType = "auction_rejected"
	NotifyFundsRefunded    NotificationType = "funds_refunded"
	NotifyFeedbackReceived NotificationType = "feedback_received"
	NotifyFeedbackResponse NotificationType = "feedback_response"
	NotifyWalletDeposit    NotificationType = "wallet_deposit"
	NotifyWalletWithdrawal NotificationType = "wallet_withdrawal"
)

type Notification struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	RecipientID string           `gorm:"size:36;not null;index:idx_notification_recipient_read" json:"recipientId"`
	SenderID    *string          `gorm:"size:36" json:"senderId,omitempty"`
	Type        NotificationType `gorm:"size:32;not null" json:"type"`
	Title       string           `gorm:"size:200;not null" json:"title"`
	Message     string           `gorm:"size:1000" json:"message"`
	Data        datatypes.JSON   `json:"data,omitempty"`
	Read        bool             `gorm:"not null;default:false;index:idx_notification_recipient_read" json:"read"`
	ReadAt      *time.Time       `json:"readAt,omitempty"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"createdAt"`
}

func (Notification) TableName() string { return "notification" }
