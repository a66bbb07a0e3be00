package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FeedbackService struct {
	store    repo.FeedbackStore
	auctions repo.AuctionStore
	notifier *NotificationService
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewFeedbackService(store repo.FeedbackStore, auctions repo.AuctionStore, notifier *NotificationService, log *zap.SugaredLogger) *FeedbackService {
	return &FeedbackService{store: store, auctions: auctions, notifier: notifier, log: log, now: time.Now}
}

type FeedbackInput struct {
	ProductID      string
	SellerID       string
	ProductRating  int
	SellerRating   int
	DeliveryRating int
	ProductReview  string
	SellerReview   string
}

const maxReviewLen = 1000

func validRating(r int) bool { return r >= 1 && r <= 5 }

// Submit records a winner's feedback. Only one submission per (product, buyer)
// is accepted, whatever the input.
func (s *FeedbackService) Submit(ctx context.Context, buyerID string, in FeedbackInput) (*model.Feedback, error) {
	if in.ProductID == "" || buyerID == "" {
		return nil, fmt.Errorf("%w: product is required", ErrInvalidInput)
	}
	exists, err := s.store.FeedbackExists(ctx, in.ProductID, buyerID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateFeedback
	}

	if !validRating(in.SellerRating) || !validRating(in.DeliveryRating) || !validRating(in.ProductRating) {
		return nil, fmt.Errorf("%w: ratings must be whole numbers from 1 to 5", ErrInvalidInput)
	}
	if len(in.ProductReview) > maxReviewLen || len(in.SellerReview) > maxReviewLen {
		return nil, fmt.Errorf("%w: reviews are limited to %d characters", ErrInvalidInput, maxReviewLen)
	}

	p, err := s.auctions.GetProduct(ctx, in.ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Status != model.ProductEnded {
		return nil, fmt.Errorf("%w: auction has not ended", ErrNotWinner)
	}
	if in.SellerID != "" && in.SellerID != p.VendorID {
		return nil, ErrSellerMismatch
	}
	if _, err := s.auctions.FindWonBid(ctx, p.ID, buyerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotWinner
		}
		return nil, err
	}

	f := &model.Feedback{
		ProductID:      p.ID,
		BuyerID:        buyerID,
		SellerID:       p.VendorID,
		ProductRating:  in.ProductRating,
		SellerRating:   in.SellerRating,
		DeliveryRating: in.DeliveryRating,
		ProductReview:  strings.TrimSpace(in.ProductReview),
		SellerReview:   strings.TrimSpace(in.SellerReview),
		Status:         model.FeedbackActive,
	}
	if err := s.store.CreateFeedback(ctx, f); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateFeedback
		}
		return nil, err
	}
	s.notifier.Notify(ctx, NotificationEvent{
		RecipientID: p.VendorID,
		SenderID:    buyerID,
		Type:        model.NotifyFeedbackReceived,
		Title:       "New feedback received",
		Message:     fmt.Sprintf("You received a %d-star seller rating for %q", f.SellerRating, p.Title),
		Data:        map[string]interface{}{"productId": p.ID, "feedbackId": f.ID},
	})
	return f, nil
}

// Respond lets the seller answer a feedback once.
func (s *FeedbackService) Respond(ctx context.Context, sellerID, feedbackID, response string) (*model.Feedback, error) {
	response = strings.TrimSpace(response)
	if response == "" || len(response) > maxReviewLen {
		return nil, fmt.Errorf("%w: response must be 1 to %d characters", ErrInvalidInput, maxReviewLen)
	}
	f, err := s.get(ctx, feedbackID)
	if err != nil {
		return nil, err
	}
	if f.SellerID != sellerID {
		return nil, ErrForbidden
	}
	if f.SellerResponse != "" {
		return nil, ErrAlreadyResponded
	}
	now := s.now()
	f.SellerResponse, f.RespondedAt = response, &now
	if err := s.store.SaveFeedback(ctx, f); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, NotificationEvent{
		RecipientID: f.BuyerID,
		SenderID:    sellerID,
		Type:        model.NotifyFeedbackResponse,
		Title:       "The seller responded to your feedback",
		Message:     response,
		Data:        map[string]interface{}{"productId": f.ProductID, "feedbackId": f.ID},
	})
	return f, nil
}

// Moderate sets the moderation status. Only active feedback counts in stats.
func (s *FeedbackService) Moderate(ctx context.Context, feedbackID string, status model.FeedbackStatus) (*model.Feedback, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	f, err := s.get(ctx, feedbackID)
	if err != nil {
		return nil, err
	}
	f.Status = status
	if err := s.store.SaveFeedback(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FeedbackService) get(ctx context.Context, id string) (*model.Feedback, error) {
	f, err := s.store.GetFeedback(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFeedbackNotFound
	}
	return f, err
}

func (s *FeedbackService) ListForProduct(ctx context.Context, productID string) ([]model.Feedback, error) {
	return s.store.ListFeedback(ctx, repo.FeedbackFilter{ProductID: productID, Limit: 100})
}

func (s *FeedbackService) ListForSeller(ctx context.Context, sellerID string) ([]model.Feedback, error) {
	return s.store.ListFeedback(ctx, repo.FeedbackFilter{SellerID: sellerID, Limit: 100})
}

// FeedbackStats are averages over active feedback, rounded to two places.
type FeedbackStats struct {
	Count                 int         `json:"count"`
	AverageProductRating  float64     `json:"averageProductRating"`
	AverageSellerRating   float64     `json:"averageSellerRating"`
	AverageDeliveryRating float64     `json:"averageDeliveryRating"`
	Distribution          map[int]int `json:"distribution"`
}

// SellerStats is computed on demand; nothing is cached.
func (s *FeedbackService) SellerStats(ctx context.Context, sellerID string) (*FeedbackStats, error) {
	fs, err := s.store.ListFeedback(ctx, repo.FeedbackFilter{SellerID: sellerID})
	if err != nil {
		return nil, err
	}
	return aggregate(fs, func(f model.Feedback) int { return f.SellerRating }), nil
}

func (s *FeedbackService) ProductStats(ctx context.Context, productID string) (*FeedbackStats, error) {
	fs, err := s.store.ListFeedback(ctx, repo.FeedbackFilter{ProductID: productID})
	if err != nil {
		return nil, err
	}
	return aggregate(fs, func(f model.Feedback) int { return f.ProductRating }), nil
}

// aggregate builds stats; the distribution buckets the rating picked by key.
func aggregate(fs []model.Feedback, key func(model.Feedback) int) *FeedbackStats {
	st := &FeedbackStats{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	var prod, seller, delivery int
	for _, f := range fs {
		st.Count++
		prod += f.ProductRating
		seller += f.SellerRating
		delivery += f.DeliveryRating
		st.Distribution[key(f)]++
	}
	if st.Count > 0 {
		n := float64(st.Count)
		st.AverageProductRating = round2(float64(prod) / n)
		st.AverageSellerRating = round2(float64(seller) / n)
		st.AverageDeliveryRating = round2(float64(delivery) / n)
	}
	return st
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
