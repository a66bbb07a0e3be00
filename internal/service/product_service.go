package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxDurationHours caps auction length at 30 days.
const MaxDurationHours = 720

// ProductService manages the auction listing lifecycle up to activation.
type ProductService struct {
	store    repo.AuctionStore
	notifier *NotificationService
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewProductService(store repo.AuctionStore, notifier *NotificationService, log *zap.SugaredLogger) *ProductService {
	return &ProductService{store: store, notifier: notifier, log: log, now: time.Now}
}

type CreateProductInput struct {
	Title         string
	Description   string
	Category      string
	StartingPrice decimal.Decimal
	DurationHours int
}

// Create lists a product as pending review.
func (s *ProductService) Create(ctx context.Context, vendor model.Actor, in CreateProductInput) (*model.Product, error) {
	if vendor.Role != model.RoleVendor {
		return nil, fmt.Errorf("%w: only vendors can list products", ErrForbidden)
	}
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	case !in.StartingPrice.IsPositive():
		return nil, fmt.Errorf("%w: starting price must be positive", ErrInvalidInput)
	case in.DurationHours < 1 || in.DurationHours > MaxDurationHours:
		return nil, fmt.Errorf("%w: duration must be between 1 and %d hours", ErrInvalidInput, MaxDurationHours)
	}
	p := &model.Product{
		Title:         title,
		Description:   in.Description,
		Category:      strings.TrimSpace(in.Category),
		StartingPrice: in.StartingPrice,
		CurrentPrice:  in.StartingPrice,
		DurationHours: in.DurationHours,
		Status:        model.ProductPending,
		VendorID:      vendor.UserID,
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.log.Infow("product listed", "product", p.ID, "vendor", p.VendorID)
	return p, nil
}

// Review moves a pending product to active (starting its clock) or rejected.
func (s *ProductService) Review(ctx context.Context, productID string, status model.ProductStatus, remarks string) (*model.Product, error) {
	if status != model.ProductActive && status != model.ProductRejected {
		return nil, fmt.Errorf("%w: review status must be active or rejected", ErrInvalidInput)
	}
	p, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Status != model.ProductPending {
		return nil, fmt.Errorf("%w: product is %s", ErrInvalidTransition, p.Status)
	}
	p.Status = status
	p.AdminRemarks = remarks
	ntype, title := model.NotifyAuctionRejected, "Your auction was rejected"
	if status == model.ProductActive {
		start := s.now()
		end := start.Add(time.Duration(p.DurationHours) * time.Hour)
		p.StartTime, p.EndTime = &start, &end
		ntype, title = model.NotifyAuctionApproved, "Your auction is live"
	}
	if err := s.store.SaveProduct(ctx, nil, p); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, NotificationEvent{
		RecipientID: p.VendorID,
		Type:        ntype,
		Title:       title,
		Message:     fmt.Sprintf("%q: %s", p.Title, remarks),
		Data:        map[string]interface{}{"productId": p.ID, "status": p.Status},
	})
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (s *ProductService) List(ctx context.Context, f repo.ProductFilter) ([]model.Product, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return s.store.ListProducts(ctx, f)
}

// BidGuide tells a client what it may bid next.
type BidGuide struct {
	ProductID       string          `json:"productId"`
	CurrentPrice    decimal.Decimal `json:"currentPrice"`
	Increment       decimal.Decimal `json:"increment"`
	NextValidAmount decimal.Decimal `json:"nextValidAmount"`
}

func (s *ProductService) NextBid(ctx context.Context, id string) (*BidGuide, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BidGuide{
		ProductID:       p.ID,
		CurrentPrice:    p.CurrentPrice,
		Increment:       MinimumIncrement(p.StartingPrice),
		NextValidAmount: NextValidAmount(p.StartingPrice, p.CurrentPrice),
	}, nil
}
