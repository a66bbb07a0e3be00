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

// BiddingService places bids. Funds for a bid are debited in the same
// database transaction that records it, and stay held until settlement.
type BiddingService struct {
	db       repo.RepositoryInterface
	store    repo.AuctionStore
	wallets  *WalletService
	notifier *NotificationService
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewBiddingService(db repo.RepositoryInterface, store repo.AuctionStore, wallets *WalletService, notifier *NotificationService, log *zap.SugaredLogger) *BiddingService {
	return &BiddingService{db: db, store: store, wallets: wallets, notifier: notifier, log: log, now: time.Now}
}

type placement struct {
	bid        *model.Bid
	product    *model.Product
	prevLeader *model.Bid
	charged    decimal.Decimal
}

// PlaceBid validates and records a bid, holding the bidder's funds.
func (s *BiddingService) PlaceBid(ctx context.Context, bidder model.Actor, productID string, amount decimal.Decimal) (*model.Bid, error) {
	if bidder.IsAdmin() {
		return nil, ErrAdminCannotBid
	}
	if bidder.UserID == "" || productID == "" {
		return nil, fmt.Errorf("%w: missing bidder or product", ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var pl *placement
	err := withRetry(ctx, func() error {
		return s.db.DB(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			pl, err = s.place(ctx, tx, bidder, productID, amount)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.wallets.ForgetBalances(ctx, bidder.UserID)
	s.log.Infow("bid placed", "product", productID, "bidder", bidder.UserID, "amount", amount, "charged", pl.charged)
	s.notifyPlaced(ctx, pl)
	return pl.bid, nil
}

func (s *BiddingService) place(ctx context.Context, tx *gorm.DB, bidder model.Actor, productID string, amount decimal.Decimal) (*placement, error) {
	p, err := s.store.GetProductForUpdate(ctx, tx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	now := s.now()
	if p.Status != model.ProductActive || (p.EndTime != nil && !now.Before(*p.EndTime)) {
		return nil, ErrAuctionNotActive
	}
	if p.VendorID == bidder.UserID {
		return nil, ErrOwnAuction
	}

	leader, err := s.store.HighestBid(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	highest := p.CurrentPrice
	if leader != nil && leader.Amount.GreaterThan(highest) {
		highest = leader.Amount
	}
	if check := ValidateBid(p.StartingPrice, highest, amount); !check.Valid {
		return nil, &BidRejectedError{Reason: check.Reason, NextValid: check.NextValid}
	}

	bid := &model.Bid{
		ID:         uuid.NewString(),
		ProductID:  productID,
		BidderID:   bidder.UserID,
		Amount:     amount,
		HeldAmount: amount,
		Status:     model.BidActive,
		CreatedAt:  now,
	}
	// A leader raising their own bid only adds the difference; the funds
	// already held move to the new bid.
	charge := amount
	if leader != nil && leader.BidderID == bidder.UserID {
		charge = amount.Sub(leader.HeldAmount)
		if err := s.store.UpdateBid(ctx, tx, leader.ID, leader.Status, decimal.Zero); err != nil {
			return nil, err
		}
	}
	if err := s.store.CreateBid(ctx, tx, bid); err != nil {
		return nil, err
	}
	if charge.IsPositive() {
		_, err = s.wallets.DebitTx(ctx, tx, LedgerEntry{
			UserID:           bidder.UserID,
			Amount:           charge,
			Type:             model.TxBid,
			Description:      fmt.Sprintf("Bid on %q", p.Title),
			RelatedBidID:     &bid.ID,
			RelatedProductID: &p.ID,
		})
		if err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateCurrentPrice(ctx, tx, p.ID, p.CurrentPrice, amount); err != nil {
		return nil, err
	}
	evt := repo.NewOutboxEvent("Auction", p.ID, "BidPlaced", map[string]interface{}{
		"product_id": p.ID, "bid_id": bid.ID, "bidder_id": bidder.UserID, "amount": amount,
	})
	if err := s.db.CreateOutboxEvent(ctx, tx, evt); err != nil {
		return nil, err
	}
	p.CurrentPrice = amount
	return &placement{bid: bid, product: p, prevLeader: leader, charged: charge}, nil
}

func (s *BiddingService) notifyPlaced(ctx context.Context, pl *placement) {
	p, b := pl.product, pl.bid
	data := map[string]interface{}{"productId": p.ID, "bidId": b.ID, "amount": b.Amount}
	s.notifier.Notify(ctx, NotificationEvent{
		RecipientID: p.VendorID,
		SenderID:    b.BidderID,
		Type:        model.NotifyBidPlaced,
		Title:       "New bid received",
		Message:     fmt.Sprintf("A bid of %s was placed on %q", b.Amount.String(), p.Title),
		Data:        data,
	})
	if pl.prevLeader != nil && pl.prevLeader.BidderID != b.BidderID {
		s.notifier.Notify(ctx, NotificationEvent{
			RecipientID: pl.prevLeader.BidderID,
			Type:        model.NotifyOutbid,
			Title:       "You have been outbid",
			Message:     fmt.Sprintf("Your bid on %q was outbid. Your funds stay held until the auction ends.", p.Title),
			Data:        data,
		})
	}
}

// ListProductBids returns a product's bids, highest first.
func (s *BiddingService) ListProductBids(ctx context.Context, productID string) ([]model.Bid, error) {
	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return s.store.ListBidsByProduct(ctx, nil, productID)
}

// ListUserBids returns a bidder's bids, newest first.
func (s *BiddingService) ListUserBids(ctx context.Context, bidderID string) ([]model.Bid, error) {
	return s.store.ListBidsByBidder(ctx, bidderID)
}

// BidStats aggregates bids by status.
type BidStats struct {
	TotalBids     int             `json:"totalBids"`
	ActiveBids    int             `json:"activeBids"`
	WonBids       int             `json:"wonBids"`
	LostBids      int             `json:"lostBids"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	AverageAmount decimal.Decimal `json:"averageAmount"`
	HighestAmount decimal.Decimal `json:"highestAmount"`
	HeldAmount    decimal.Decimal `json:"heldAmount"`
	Products      int             `json:"products"`
}

// Stats returns the bidder's statistics, or marketplace-wide ones when
// bidderID is empty.
func (s *BiddingService) Stats(ctx context.Context, bidderID string) (*BidStats, error) {
	var (
		bids []model.Bid
		err  error
	)
	if bidderID == "" {
		bids, err = s.store.ListAllBids(ctx)
	} else {
		bids, err = s.store.ListBidsByBidder(ctx, bidderID)
	}
	if err != nil {
		return nil, err
	}
	return summarizeBids(bids), nil
}

func summarizeBids(bids []model.Bid) *BidStats {
	st := &BidStats{}
	products := map[string]struct{}{}
	for _, b := range bids {
		st.TotalBids++
		switch b.Status {
		case model.BidActive:
			st.ActiveBids++
		case model.BidWon:
			st.WonBids++
		case model.BidLost:
			st.LostBids++
		}
		st.TotalAmount = st.TotalAmount.Add(b.Amount)
		st.HeldAmount = st.HeldAmount.Add(b.HeldAmount)
		if b.Amount.GreaterThan(st.HighestAmount) {
			st.HighestAmount = b.Amount
		}
		products[b.ProductID] = struct{}{}
	}
	st.Products = len(products)
	if st.TotalBids > 0 {
		st.AverageAmount = st.TotalAmount.Div(decimal.NewFromInt(int64(st.TotalBids))).Round(2)
	}
	return st
}
