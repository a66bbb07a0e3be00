package repo

import (
	"context"
	"errors"

	"github.com/richardliu001/auction-market/internal/model"
	"gorm.io/gorm"
)

type FeedbackStore interface {
	CreateFeedback(ctx context.Context, f *model.Feedback) error
	GetFeedback(ctx context.Context, id string) (*model.Feedback, error)
	FeedbackExists(ctx context.Context, productID, buyerID string) (bool, error)
	SaveFeedback(ctx context.Context, f *model.Feedback) error
	ListFeedback(ctx context.Context, f FeedbackFilter) ([]model.Feedback, error)
}

// FeedbackFilter selects feedback by product or seller. Status defaults to active.
type FeedbackFilter struct {
	ProductID string
	SellerID  string
	Status    model.FeedbackStatus
	Limit     int
}

// CreateFeedback inserts; a second row for the same (product, buyer) is ErrDuplicate.
func (r *Repository) CreateFeedback(ctx context.Context, f *model.Feedback) error {
	err := r.db.WithContext(ctx).Create(f).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *Repository) GetFeedback(ctx context.Context, id string) (*model.Feedback, error) {
	var f model.Feedback
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repository) FeedbackExists(ctx context.Context, productID, buyerID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Feedback{}).
		Where("product_id = ? AND buyer_id = ?", productID, buyerID).Count(&n).Error
	return n > 0, err
}

func (r *Repository) SaveFeedback(ctx context.Context, f *model.Feedback) error {
	return r.db.WithContext(ctx).Save(f).Error
}

func (r *Repository) ListFeedback(ctx context.Context, f FeedbackFilter) ([]model.Feedback, error) {
	status := f.Status
	if status == "" {
		status = model.FeedbackActive
	}
	q := r.db.WithContext(ctx).Where("status = ?", status)
	if f.ProductID != "" {
		q = q.Where("product_id = ?", f.ProductID)
	}
	if f.SellerID != "" {
		q = q.Where("seller_id = ?", f.SellerID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []model.Feedback
	err := q.Order("created_at desc").Find(&out).Error
	return out, err
}
