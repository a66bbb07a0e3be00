package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/auction-market/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrConflict is returned when an optimistic (version or value) check fails.
	ErrConflict = errors.New("optimistic lock conflict")
	// ErrDuplicate is returned when a write hits a unique index.
	ErrDuplicate = errors.New("duplicate record")
)

// RepositoryInterface restricts the ledger side of Repository so the wallet
// service can be tested against a fake.
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	GetWallet(ctx context.Context, tx *gorm.DB, userID string) (*model.Wallet, error)
	GetWalletForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*model.Wallet, error)
	CreateWallet(ctx context.Context, tx *gorm.DB, w *model.Wallet) error
	UpdateWallet(ctx context.Context, tx *gorm.DB, walletID string, newBalance decimal.Decimal, oldVersion uint64, at time.Time) error
	CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error
	TxExists(ctx context.Context, tx *gorm.DB, userID, relatedBidID string, txType model.TxType) (bool, *model.Transaction, error)
	ListTransactions(ctx context.Context, userID string, f TxFilter) ([]model.Transaction, error)
	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	PublishEvent(ctx context.Context, evt model.OutboxEvent) error
	CacheBalance(ctx context.Context, userID string, bal decimal.Decimal) error
	GetCachedBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	ForgetBalance(ctx context.Context, userIDs ...string) error
}

// TxFilter narrows a transaction history query. Zero values mean no filter.
type TxFilter struct {
	Type  model.TxType
	Since time.Time
	Limit int
}

// Repository implements RepositoryInterface plus the auction, feedback and
// notification stores.
type Repository struct {
	db     *gorm.DB
	rdb    *redis.Client
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

// NewRepository constructs repo. rdb may be nil, which disables balance caching.
func NewRepository(db *gorm.DB, rdb *redis.Client, w *kafka.Writer, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, writer: w, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

func (r *Repository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db.WithContext(ctx)
	}
	return tx.WithContext(ctx)
}

// GetWallet reads a wallet without locking.
func (r *Repository) GetWallet(ctx context.Context, tx *gorm.DB, userID string) (*model.Wallet, error) {
	var w model.Wallet
	if err := r.conn(ctx, tx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWalletForUpdate locks wallet row.
func (r *Repository) GetWalletForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*model.Wallet, error) {
	var w model.Wallet
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateWallet inserts a wallet. A concurrent create for the same user
// surfaces as ErrConflict so the caller retries and finds the winner's row.
func (r *Repository) CreateWallet(ctx context.Context, tx *gorm.DB, w *model.Wallet) error {
	err := r.conn(ctx, tx).Create(w).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

// UpdateWallet with optimistic lock.
func (r *Repository) UpdateWallet(ctx context.Context, tx *gorm.DB, walletID string, newBalance decimal.Decimal, oldVersion uint64, at time.Time) error {
	res := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ? AND version = ?", walletID, oldVersion).
		Updates(map[string]interface{}{
			"balance":          newBalance,
			"version":          oldVersion + 1,
			"last_transaction": at,
			"updated_at":       at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// CreateTransaction inserts a ledger entry. A hit on the (related_bid_id, type)
// unique index is reported as ErrDuplicate.
func (r *Repository) CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error {
	err := tx.WithContext(ctx).Create(t).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("transaction %s for bid %v: %w", t.Type, deref(t.RelatedBidID), ErrDuplicate)
	}
	return err
}

// TxExists looks up the user's completed entry for the bid and type.
func (r *Repository) TxExists(ctx context.Context, tx *gorm.DB, userID, relatedBidID string, txType model.TxType) (bool, *model.Transaction, error) {
	if relatedBidID == "" {
		return false, nil, nil
	}
	var t model.Transaction
	err := r.conn(ctx, tx).
		Where("user_id = ? AND related_bid_id = ? AND type = ? AND status = ?", userID, relatedBidID, txType, model.TxCompleted).
		First(&t).Error
	if err == nil {
		return true, &t, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	return false, nil, err
}

// ListTransactions returns a user's ledger, newest first.
func (r *Repository) ListTransactions(ctx context.Context, userID string, f TxFilter) ([]model.Transaction, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var txs []model.Transaction
	err := q.Order("created_at desc").Order("id").Find(&txs).Error
	return txs, err
}

func balanceKey(userID string) string { return "balance:" + userID }

// CacheBalance writes Redis.
func (r *Repository) CacheBalance(ctx context.Context, userID string, bal decimal.Decimal) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Set(ctx, balanceKey(userID), bal.String(), 5*time.Minute).Err()
}

// GetCachedBalance reads Redis. Returns redis.Nil on a miss or when caching is off.
func (r *Repository) GetCachedBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if r.rdb == nil {
		return decimal.Zero, redis.Nil
	}
	str, err := r.rdb.Get(ctx, balanceKey(userID)).Result()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(str)
}

// ForgetBalance drops cached balances after a ledger write committed elsewhere.
func (r *Repository) ForgetBalance(ctx context.Context, userIDs ...string) error {
	if r.rdb == nil || len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, balanceKey(id))
	}
	return r.rdb.Del(ctx, keys...).Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
