package model

import "time"

type FeedbackStatus string

const (
	FeedbackActive  FeedbackStatus = "active"
	FeedbackHidden  FeedbackStatus = "hidden"
	FeedbackFlagged FeedbackStatus = "flagged"
)

func (s FeedbackStatus) Valid() bool {
	return s == FeedbackActive || s == FeedbackHidden || s == FeedbackFlagged
}

// Feedback is a winner's review of a settled auction, one per (product, buyer).
type Feedback struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	ProductID      string         `gorm:"size:36;not null;uniqueIndex:idx_feedback_product_buyer" json:"productId"`
	BuyerID        string         `gorm:"size:36;not null;uniqueIndex:idx_feedback_product_buyer" json:"buyerId"`
	SellerID       string         `gorm:"size:36;not null;index" json:"sellerId"`
	ProductRating  int            `gorm:"not null" json:"productRating"`
	SellerRating   int            `gorm:"not null" json:"sellerRating"`
	DeliveryRating int            `gorm:"not null" json:"deliveryRating"`
	ProductReview  string         `gorm:"size:1000" json:"productReview,omitempty"`
	SellerReview   string         `gorm:"size:1000" json:"sellerReview,omitempty"`
	SellerResponse string         `gorm:"size:1000" json:"sellerResponse,omitempty"`
	RespondedAt    *time.Time     `json:"respondedAt,omitempty"`
	Status         FeedbackStatus `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Feedback) TableName() string { return "feedback" }
