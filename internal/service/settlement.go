package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SettlementService closes auctions past their end time.
type SettlementService struct {
	db       repo.RepositoryInterface
	store    repo.AuctionStore
	wallets  *WalletService
	notifier *NotificationService
	log      *zap.SugaredLogger
	// batch caps how many auctions one sweep pass settles.
	batch int
}

func NewSettlementService(db repo.RepositoryInterface, store repo.AuctionStore, wallets *WalletService, notifier *NotificationService, log *zap.SugaredLogger) *SettlementService {
	return &SettlementService{db: db, store: store, wallets: wallets, notifier: notifier, log: log, batch: 500}
}

// Settlement describes what happened to one auction.
type Settlement struct {
	ProductID  string          `json:"productId"`
	WinnerID   string          `json:"winnerId,omitempty"`
	WinningBid *model.Bid      `json:"winningBid,omitempty"`
	Refunds    []Refund        `json:"refunds,omitempty"`
	Payout     decimal.Decimal `json:"payout"`
	// Skipped is set when the auction was already settled by someone else.
	Skipped bool `json:"skipped"`

	product *model.Product
	losers  []model.Bid
}

type Refund struct {
	BidID    string          `json:"bidId"`
	BidderID string          `json:"bidderId"`
	Amount   decimal.Decimal `json:"amount"`
}

// SweepReport summarizes one SettleExpired pass.
type SweepReport struct {
	Found   int      `json:"found"`
	Settled int      `json:"settled"`
	Skipped int      `json:"skipped"`
	Failed  []string `json:"failed,omitempty"`
}

// SettleExpired settles every active auction whose end time is before now.
// Each auction is settled in its own transaction; a failure is logged and
// does not stop the others.
func (s *SettlementService) SettleExpired(ctx context.Context, now time.Time) (*SweepReport, error) {
	ids, err := s.store.ListExpiredProductIDs(ctx, now, s.batch)
	if err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", err)
	}
	rep := &SweepReport{Found: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		res, err := s.SettleProduct(ctx, id, now)
		if err != nil {
			s.log.Errorw("settle auction", "product", id, "err", err)
			rep.Failed = append(rep.Failed, id)
			continue
		}
		if res.Skipped {
			rep.Skipped++
			continue
		}
		rep.Settled++
	}
	return rep, nil
}

// SettleProduct closes one auction: the highest bid wins, every other bid is
// lost and its held funds refunded, and the vendor is paid the winning amount.
// Running it again on a settled auction is a no-op.
func (s *SettlementService) SettleProduct(ctx context.Context, productID string, now time.Time) (*Settlement, error) {
	var res *Settlement
	err := withRetry(ctx, func() error {
		return s.db.DB(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			res, err = s.settle(ctx, tx, productID, now)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	if res.Skipped {
		return res, nil
	}

	touched := []string{res.product.VendorID}
	for _, r := range res.Refunds {
		touched = append(touched, r.BidderID)
	}
	s.wallets.ForgetBalances(ctx, touched...)
	s.log.Infow("auction settled", "product", productID, "winner", res.WinnerID, "refunds", len(res.Refunds))
	s.notifySettled(ctx, res)
	return res, nil
}

func (s *SettlementService) settle(ctx context.Context, tx *gorm.DB, productID string, now time.Time) (*Settlement, error) {
	p, err := s.store.GetProductForUpdate(ctx, tx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	res := &Settlement{ProductID: p.ID, product: p}
	if p.Status != model.ProductActive {
		res.Skipped = true
		return res, nil
	}
	if !p.Expired(now) {
		return nil, ErrAuctionStillOpen
	}

	bids, err := s.store.ListBidsByProduct(ctx, tx, p.ID)
	if err != nil {
		return nil, err
	}
	var winner *model.Bid
	for i := range bids {
		if winner == nil || bids[i].Outranks(winner) {
			winner = &bids[i]
		}
	}

	if winner != nil {
		for _, b := range bids {
			if b.ID == winner.ID {
				continue
			}
			if b.HeldAmount.IsPositive() {
				bidID := b.ID
				_, err := s.wallets.CreditTx(ctx, tx, LedgerEntry{
					UserID:           b.BidderID,
					Amount:           b.HeldAmount,
					Type:             model.TxBidRefund,
					Description:      fmt.Sprintf("Refund for losing bid on %q", p.Title),
					RelatedBidID:     &bidID,
					RelatedProductID: &p.ID,
				})
				if err != nil {
					return nil, fmt.Errorf("refund bid %s: %w", b.ID, err)
				}
				res.Refunds = append(res.Refunds, Refund{BidID: b.ID, BidderID: b.BidderID, Amount: b.HeldAmount})
			}
			if err := s.store.UpdateBid(ctx, tx, b.ID, model.BidLost, decimal.Zero); err != nil {
				return nil, err
			}
			res.losers = append(res.losers, b)
		}

		winID := winner.ID
		_, err := s.wallets.CreditTx(ctx, tx, LedgerEntry{
			UserID:           p.VendorID,
			Amount:           winner.Amount,
			Type:             model.TxAuctionWin,
			Description:      fmt.Sprintf("Proceeds from auction %q", p.Title),
			RelatedBidID:     &winID,
			RelatedProductID: &p.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("pay vendor for bid %s: %w", winner.ID, err)
		}
		if err := s.store.UpdateBid(ctx, tx, winner.ID, model.BidWon, decimal.Zero); err != nil {
			return nil, err
		}
		winner.Status, winner.HeldAmount = model.BidWon, decimal.Zero
		res.WinningBid = winner
		res.WinnerID = winner.BidderID
		res.Payout = winner.Amount
		p.WinnerID = &res.WinnerID
	}

	p.Status = model.ProductEnded
	if err := s.store.SaveProduct(ctx, tx, p); err != nil {
		return nil, err
	}
	evt := repo.NewOutboxEvent("Auction", p.ID, "AuctionSettled", map[string]interface{}{
		"product_id": p.ID, "winner_id": res.WinnerID, "amount": res.Payout, "refunds": len(res.Refunds),
	})
	if err := s.db.CreateOutboxEvent(ctx, tx, evt); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SettlementService) notifySettled(ctx context.Context, res *Settlement) {
	p := res.product
	data := map[string]interface{}{"productId": p.ID, "winnerId": res.WinnerID, "finalPrice": res.Payout}

	msg := fmt.Sprintf("Your auction %q ended without bids", p.Title)
	if res.WinningBid != nil {
		msg = fmt.Sprintf("Your auction %q sold for %s", p.Title, res.Payout.String())
	}
	s.notifier.Notify(ctx, NotificationEvent{
		RecipientID: p.VendorID, Type: model.NotifyAuctionEnded, Title: "Auction ended", Message: msg, Data: data,
	})
	if res.WinningBid == nil {
		return
	}
	s.notifier.Notify(ctx, NotificationEvent{
		RecipientID: res.WinnerID,
		SenderID:    p.VendorID,
		Type:        model.NotifyAuctionWon,
		Title:       "You won the auction",
		Message:     fmt.Sprintf("You won %q for %s", p.Title, res.Payout.String()),
		Data:        data,
	})

	notified := map[string]bool{res.WinnerID: true}
	for _, b := range res.losers {
		if notified[b.BidderID] {
			continue
		}
		notified[b.BidderID] = true
		s.notifier.Notify(ctx, NotificationEvent{
			RecipientID: b.BidderID,
			Type:        model.NotifyAuctionLost,
			Title:       "Auction ended",
			Message:     fmt.Sprintf("You did not win %q", p.Title),
			Data:        data,
		})
	}
	for _, r := range res.Refunds {
		s.notifier.Notify(ctx, NotificationEvent{
			RecipientID: r.BidderID,
			Type:        model.NotifyFundsRefunded,
			Title:       "Funds refunded",
			Message:     fmt.Sprintf("%s was returned to your wallet for %q", r.Amount.String(), p.Title),
			Data:        map[string]interface{}{"productId": p.ID, "bidId": r.BidID, "amount": r.Amount},
		})
	}
}

// Locker is a cross-process mutex.
type Locker interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// Sweeper runs SettleExpired once at start and then on every tick. Each pass
// holds a lock so concurrent instances do not sweep at the same time.
type Sweeper struct {
	settlement *SettlementService
	locker     Locker
	key        string
	ttl        time.Duration
	interval   time.Duration
	log        *zap.SugaredLogger
	now        func() time.Time
	newToken   func() string
}

func NewSweeper(settlement *SettlementService, locker Locker, key string, ttl, interval time.Duration, log *zap.SugaredLogger) *Sweeper {
	return &Sweeper{
		settlement: settlement, locker: locker, key: key, ttl: ttl, interval: interval, log: log,
		now: time.Now, newToken: uuid.NewString,
	}
}

// Run blocks until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Infow("settlement sweeper started", "interval", w.interval)
	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Errorw("settlement sweep", "err", err)
		}
		select {
		case <-ctx.Done():
			w.log.Info("settlement sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single guarded pass. It returns a nil report when
// another instance holds the lock.
func (w *Sweeper) RunOnce(ctx context.Context) (*SweepReport, error) {
	token := w.newToken()
	ok, err := w.locker.TryLock(ctx, w.key, token, w.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		w.log.Debugw("sweep lock held elsewhere, skipping pass", "key", w.key)
		return nil, nil
	}
	defer func() {
		if err := w.locker.Unlock(context.Background(), w.key, token); err != nil {
			w.log.Warnw("release sweep lock", "key", w.key, "err", err)
		}
	}()

	rep, err := w.settlement.SettleExpired(ctx, w.now())
	if err != nil {
		return rep, err
	}
	if rep.Found > 0 {
		w.log.Infow("settlement sweep finished", "found", rep.Found, "settled", rep.Settled, "skipped", rep.Skipped, "failed", len(rep.Failed))
	}
	return rep, nil
}
