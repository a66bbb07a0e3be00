package repo

import (
	"context"
	"errors"
	"time"

	"github.com/richardliu001/auction-market/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AuctionStore persists products and bids.
type AuctionStore interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetProductForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Product, error)
	SaveProduct(ctx context.Context, tx *gorm.DB, p *model.Product) error
	ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, error)
	ListExpiredProductIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
	UpdateCurrentPrice(ctx context.Context, tx *gorm.DB, productID string, prev, next decimal.Decimal) error

	CreateBid(ctx context.Context, tx *gorm.DB, b *model.Bid) error
	HighestBid(ctx context.Context, tx *gorm.DB, productID string) (*model.Bid, error)
	ListBidsByProduct(ctx context.Context, tx *gorm.DB, productID string) ([]model.Bid, error)
	ListBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error)
	ListAllBids(ctx context.Context) ([]model.Bid, error)
	UpdateBid(ctx context.Context, tx *gorm.DB, bidID string, status model.BidStatus, held decimal.Decimal) error
	FindWonBid(ctx context.Context, productID, bidderID string) (*model.Bid, error)
}

// ProductFilter narrows ListProducts. Zero values mean no filter.
type ProductFilter struct {
	Status   model.ProductStatus
	Category string
	VendorID string
	Limit    int
}

func (r *Repository) CreateProduct(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProductForUpdate locks the product row for the rest of tx. Every bid
// placement and settlement on one product serializes here.
func (r *Repository) GetProductForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Product, error) {
	var p model.Product
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) SaveProduct(ctx context.Context, tx *gorm.DB, p *model.Product) error {
	return r.conn(ctx, tx).Save(p).Error
}

func (r *Repository) ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	q := r.db.WithContext(ctx)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.VendorID != "" {
		q = q.Where("vendor_id = ?", f.VendorID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var ps []model.Product
	err := q.Order("created_at desc").Find(&ps).Error
	return ps, err
}

// ListExpiredProductIDs returns active auctions whose end time is before now,
// oldest first.
func (r *Repository) ListExpiredProductIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	q := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("status = ? AND end_time < ?", model.ProductActive, now).
		Order("end_time")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Pluck("id", &ids).Error
	return ids, err
}

// UpdateCurrentPrice moves the price from prev to next, failing with
// ErrConflict if another writer changed it first.
func (r *Repository) UpdateCurrentPrice(ctx context.Context, tx *gorm.DB, productID string, prev, next decimal.Decimal) error {
	res := tx.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND status = ? AND current_price = ?", productID, model.ProductActive, prev).
		Updates(map[string]interface{}{"current_price": next, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *Repository) CreateBid(ctx context.Context, tx *gorm.DB, b *model.Bid) error {
	return r.conn(ctx, tx).Create(b).Error
}

func rankedBids(q *gorm.DB) *gorm.DB {
	return q.Order("amount desc").Order("created_at asc").Order("id asc")
}

// HighestBid returns the leading bid or nil when the product has none.
func (r *Repository) HighestBid(ctx context.Context, tx *gorm.DB, productID string) (*model.Bid, error) {
	var b model.Bid
	err := rankedBids(r.conn(ctx, tx).Where("product_id = ?", productID)).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBidsByProduct returns bids ranked best first.
func (r *Repository) ListBidsByProduct(ctx context.Context, tx *gorm.DB, productID string) ([]model.Bid, error) {
	var bids []model.Bid
	err := rankedBids(r.conn(ctx, tx).Where("product_id = ?", productID)).Find(&bids).Error
	return bids, err
}

func (r *Repository) ListBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error) {
	var bids []model.Bid
	err := r.db.WithContext(ctx).Where("bidder_id = ?", bidderID).Order("created_at desc").Find(&bids).Error
	return bids, err
}

func (r *Repository) ListAllBids(ctx context.Context) ([]model.Bid, error) {
	var bids []model.Bid
	err := r.db.WithContext(ctx).Find(&bids).Error
	return bids, err
}

func (r *Repository) UpdateBid(ctx context.Context, tx *gorm.DB, bidID string, status model.BidStatus, held decimal.Decimal) error {
	return r.conn(ctx, tx).Model(&model.Bid{}).Where("id = ?", bidID).
		Updates(map[string]interface{}{"status": status, "held_amount": held, "updated_at": time.Now()}).Error
}

// FindWonBid returns the won bid of bidder on product, or gorm.ErrRecordNotFound.
func (r *Repository) FindWonBid(ctx context.Context, productID, bidderID string) (*model.Bid, error) {
	var b model.Bid
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND bidder_id = ? AND status = ?", productID, bidderID, model.BidWon).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}
