package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/repo"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	ctx           context.Context
	db            *gorm.DB
	repo          *repo.Repository
	log           *zap.SugaredLogger
	wallets       *WalletService
	notifications *NotificationService
	bidding       *BiddingService
	products      *ProductService
	settlement    *SettlementService
	feedback      *FeedbackService
	clock         time.Time
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection: sqlite has no row locks, so serialize everything
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	log := zap.NewNop().Sugar()
	r := repo.NewRepository(db, nil, &kafka.Writer{}, log)

	f := &fixture{
		ctx:   context.Background(),
		db:    db,
		repo:  r,
		log:   log,
		clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }

	f.notifications = NewNotificationService(r, log)
	f.wallets = NewWalletService(r, log)
	f.bidding = NewBiddingService(r, r, f.wallets, f.notifications, log)
	f.products = NewProductService(r, f.notifications, log)
	f.settlement = NewSettlementService(r, r, f.wallets, f.notifications, log)
	f.feedback = NewFeedbackService(r, r, f.notifications, log)
	f.wallets.now, f.bidding.now, f.products.now = now, now, now
	f.notifications.now, f.feedback.now = now, now
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

// fund deposits amt into the user's wallet.
func (f *fixture) fund(t *testing.T, userID, amt string) {
	t.Helper()
	_, err := f.wallets.Deposit(f.ctx, userID, dec(amt), "card", "")
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.GetWallet(f.ctx, userID)
	require.NoError(t, err)
	return w.Balance
}

// liveAuction lists and approves a product so it is active from f.clock.
func (f *fixture) liveAuction(t *testing.T, vendorID, startingPrice string, hours int) *model.Product {
	t.Helper()
	p, err := f.products.Create(f.ctx, model.Actor{UserID: vendorID, Role: model.RoleVendor}, CreateProductInput{
		Title: "Vintage camera", Category: "electronics", StartingPrice: dec(startingPrice), DurationHours: hours,
	})
	require.NoError(t, err)
	p, err = f.products.Review(f.ctx, p.ID, model.ProductActive, "looks good")
	require.NoError(t, err)
	return p
}

func buyer(id string) model.Actor { return model.Actor{UserID: id, Role: model.RoleBuyer} }

// requireLedgerBalanced checks balance == sum of completed entries.
func (f *fixture) requireLedgerBalanced(t *testing.T, userID string) {
	t.Helper()
	rec, err := f.wallets.Reconcile(f.ctx, userID)
	require.NoError(t, err)
	require.Truef(t, rec.Consistent, "balance %s != ledger %s", rec.Balance, rec.LedgerSum)
}

func (f *fixture) transactions(t *testing.T, userID string) []model.Transaction {
	t.Helper()
	txs, err := f.repo.ListTransactions(f.ctx, userID, repo.TxFilter{})
	require.NoError(t, err)
	return txs
}

func (f *fixture) bid(t *testing.T, id string) model.Bid {
	t.Helper()
	var b model.Bid
	require.NoError(t, f.db.First(&b, "id = ?", id).Error)
	return b
}

func (f *fixture) product(t *testing.T, id string) *model.Product {
	t.Helper()
	p, err := f.repo.GetProduct(f.ctx, id)
	require.NoError(t, err)
	return p
}

func decFromInt(i int64) decimal.Decimal { return decimal.NewFromInt(i) }
