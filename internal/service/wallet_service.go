package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxAttempts bounds retries of a ledger transaction after an optimistic conflict.
const maxAttempts = 5

// WalletService is the ledger: every balance change goes through Credit or
// Debit, which update the wallet and append a Transaction atomically.
type WalletService struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
	now  func() time.Time
}

// NewWalletService returns WalletService.
func NewWalletService(r repo.RepositoryInterface, logger *zap.SugaredLogger) *WalletService {
	return &WalletService{repo: r, log: logger, now: time.Now}
}

// LedgerEntry describes one balance-affecting event. Amount is always
// positive; the direction comes from Credit or Debit.
type LedgerEntry struct {
	UserID           string
	Amount           decimal.Decimal
	Type             model.TxType
	Description      string
	PaymentMethod    string
	RelatedBidID     *string
	RelatedProductID *string
}

// LedgerResult is the wallet state after an entry was applied. Duplicate is
// set when an identical entry already existed and nothing changed.
type LedgerResult struct {
	Wallet    *model.Wallet
	Entry     *model.Transaction
	Duplicate bool
}

// Entry types that are applied at most once per related bid.
var (
	creditOnce = map[model.TxType]bool{model.TxBidRefund: true, model.TxAuctionWin: true}
	debitOnce  = map[model.TxType]bool{model.TxBid: true}
)

// Credit adds funds to the owner's wallet.
func (s *WalletService) Credit(ctx context.Context, e LedgerEntry) (*LedgerResult, error) {
	return s.run(ctx, e, 1)
}

// Debit removes funds, failing with ErrInsufficientFunds when the balance is short.
func (s *WalletService) Debit(ctx context.Context, e LedgerEntry) (*LedgerResult, error) {
	return s.run(ctx, e, -1)
}

// CreditTx applies a credit inside the caller's transaction. The caller owns
// commit, retry and cache invalidation.
func (s *WalletService) CreditTx(ctx context.Context, tx *gorm.DB, e LedgerEntry) (*LedgerResult, error) {
	return s.apply(ctx, tx, e, 1)
}

// DebitTx applies a debit inside the caller's transaction.
func (s *WalletService) DebitTx(ctx context.Context, tx *gorm.DB, e LedgerEntry) (*LedgerResult, error) {
	return s.apply(ctx, tx, e, -1)
}

func (s *WalletService) run(ctx context.Context, e LedgerEntry, sign int) (*LedgerResult, error) {
	var res *LedgerResult
	err := withRetry(ctx, func() error {
		return s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			res, err = s.apply(ctx, tx, e, sign)
			return err
		})
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// lost a race against an identical entry; report the committed state
		w, gerr := s.repo.GetWallet(ctx, nil, e.UserID)
		if gerr != nil {
			return nil, gerr
		}
		return &LedgerResult{Wallet: w, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}
	if !res.Duplicate {
		if err := s.repo.CacheBalance(ctx, e.UserID, res.Wallet.Balance); err != nil {
			s.log.Warnw("cache balance", "user", e.UserID, "err", err)
		}
	}
	return res, nil
}

func (s *WalletService) apply(ctx context.Context, tx *gorm.DB, e LedgerEntry, sign int) (*LedgerResult, error) {
	if !e.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !e.Type.Valid() {
		return nil, ErrInvalidInput
	}

	once := creditOnce
	if sign < 0 {
		once = debitOnce
	}
	if e.RelatedBidID != nil && once[e.Type] {
		existed, prev, err := s.repo.TxExists(ctx, tx, e.UserID, *e.RelatedBidID, e.Type)
		if err != nil {
			return nil, err
		}
		if existed {
			w, err := s.repo.GetWallet(ctx, tx, e.UserID)
			if err != nil {
				return nil, err
			}
			s.log.Infow("ledger entry already applied", "user", e.UserID, "type", e.Type, "bid", *e.RelatedBidID)
			return &LedgerResult{Wallet: w, Entry: prev, Duplicate: true}, nil
		}
	}

	w, err := s.loadOrCreate(ctx, tx, e.UserID)
	if err != nil {
		return nil, err
	}

	signed := e.Amount
	if sign < 0 {
		signed = e.Amount.Neg()
	}
	newBal := w.Balance.Add(signed)
	if newBal.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	now := s.now()
	if err := s.repo.UpdateWallet(ctx, tx, w.ID, newBal, w.Version, now); err != nil {
		return nil, err
	}
	t := &model.Transaction{
		WalletID:         w.ID,
		UserID:           e.UserID,
		Type:             e.Type,
		Amount:           signed,
		BalanceBefore:    w.Balance,
		BalanceAfter:     newBal,
		Description:      e.Description,
		Status:           model.TxCompleted,
		PaymentMethod:    e.PaymentMethod,
		RelatedProductID: e.RelatedProductID,
		RelatedBidID:     e.RelatedBidID,
	}
	if err := s.repo.CreateTransaction(ctx, tx, t); err != nil {
		return nil, err
	}
	evt := repo.NewOutboxEvent("Wallet", w.ID, "WalletTransaction", map[string]interface{}{
		"user_id": e.UserID, "type": e.Type, "amount": signed, "balance": newBal, "transaction_id": t.ID,
	})
	if err := s.repo.CreateOutboxEvent(ctx, tx, evt); err != nil {
		return nil, err
	}

	w.Balance = newBal
	w.Version++
	w.LastTransaction = &now
	return &LedgerResult{Wallet: w, Entry: t}, nil
}

func (s *WalletService) loadOrCreate(ctx context.Context, tx *gorm.DB, userID string) (*model.Wallet, error) {
	w, err := s.repo.GetWalletForUpdate(ctx, tx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	w = &model.Wallet{UserID: userID, Balance: decimal.Zero}
	if err := s.repo.CreateWallet(ctx, tx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Deposit adds external funds.
func (s *WalletService) Deposit(ctx context.Context, userID string, amt decimal.Decimal, method, description string) (*LedgerResult, error) {
	if description == "" {
		description = "Wallet deposit"
	}
	return s.Credit(ctx, LedgerEntry{
		UserID: userID, Amount: amt, Type: model.TxDeposit, Description: description, PaymentMethod: method,
	})
}

// Withdraw moves funds out of the wallet.
func (s *WalletService) Withdraw(ctx context.Context, userID string, amt decimal.Decimal, method, description string) (*LedgerResult, error) {
	if description == "" {
		description = "Wallet withdrawal"
	}
	return s.Debit(ctx, LedgerEntry{
		UserID: userID, Amount: amt, Type: model.TxWithdrawal, Description: description, PaymentMethod: method,
	})
}

// Adjust applies an administrative correction; a negative amount debits.
func (s *WalletService) Adjust(ctx context.Context, userID string, amt decimal.Decimal, description string) (*LedgerResult, error) {
	if amt.IsZero() {
		return nil, ErrInvalidAmount
	}
	if description == "" {
		description = "Administrative adjustment"
	}
	e := LedgerEntry{UserID: userID, Amount: amt.Abs(), Type: model.TxAdminAdjustment, Description: description}
	if amt.IsNegative() {
		return s.Debit(ctx, e)
	}
	return s.Credit(ctx, e)
}

// GetWallet returns the user's wallet, creating an empty one on first access.
func (s *WalletService) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	w, err := s.repo.GetWallet(ctx, nil, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	w = &model.Wallet{UserID: userID, Balance: decimal.Zero}
	if err := s.repo.CreateWallet(ctx, nil, w); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return s.repo.GetWallet(ctx, nil, userID)
		}
		return nil, err
	}
	return w, nil
}

// GetBalance returns current wallet balance, served from cache when possible.
func (s *WalletService) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	bal, err := s.repo.GetCachedBalance(ctx, userID)
	if err == nil {
		return bal, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.log.Warnw("read cached balance", "user", userID, "err", err)
	}
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.repo.CacheBalance(ctx, userID, w.Balance); err != nil {
		s.log.Warnw("cache balance", "user", userID, "err", err)
	}
	return w.Balance, nil
}

// HasSufficientFunds is a read-only check; it does not reserve anything.
func (s *WalletService) HasSufficientFunds(ctx context.Context, userID string, amt decimal.Decimal) (bool, error) {
	w, err := s.repo.GetWallet(ctx, nil, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return !amt.IsPositive(), nil
	}
	if err != nil {
		return false, err
	}
	return w.HasSufficientFunds(amt), nil
}

// GetHistory fetches recent transactions, newest first.
func (s *WalletService) GetHistory(ctx context.Context, userID string, f repo.TxFilter) ([]model.Transaction, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	return s.repo.ListTransactions(ctx, userID, f)
}

// ForgetBalances drops cached balances after an outer transaction committed.
func (s *WalletService) ForgetBalances(ctx context.Context, userIDs ...string) {
	if err := s.repo.ForgetBalance(ctx, userIDs...); err != nil {
		s.log.Warnw("invalidate cached balance", "users", userIDs, "err", err)
	}
}

// WalletStats summarizes a user's ledger by entry type.
type WalletStats struct {
	Balance          decimal.Decimal            `json:"balance"`
	TransactionCount int                        `json:"transactionCount"`
	TotalDeposits    decimal.Decimal            `json:"totalDeposits"`
	TotalWithdrawals decimal.Decimal            `json:"totalWithdrawals"`
	TotalBids        decimal.Decimal            `json:"totalBids"`
	TotalRefunds     decimal.Decimal            `json:"totalRefunds"`
	TotalWinnings    decimal.Decimal            `json:"totalWinnings"`
	ByType           map[model.TxType]TypeStats `json:"byType"`
	LastTransaction  *time.Time                 `json:"lastTransaction,omitempty"`
}

type TypeStats struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func (s *WalletService) Stats(ctx context.Context, userID string) (*WalletStats, error) {
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.ListTransactions(ctx, userID, repo.TxFilter{})
	if err != nil {
		return nil, err
	}
	st := &WalletStats{Balance: w.Balance, ByType: map[model.TxType]TypeStats{}, LastTransaction: w.LastTransaction}
	for _, t := range txs {
		if t.Status != model.TxCompleted {
			continue
		}
		st.TransactionCount++
		ts := st.ByType[t.Type]
		ts.Count++
		ts.Total = ts.Total.Add(t.Amount)
		st.ByType[t.Type] = ts
		switch t.Type {
		case model.TxDeposit:
			st.TotalDeposits = st.TotalDeposits.Add(t.Amount)
		case model.TxWithdrawal:
			st.TotalWithdrawals = st.TotalWithdrawals.Add(t.Amount.Abs())
		case model.TxBid:
			st.TotalBids = st.TotalBids.Add(t.Amount.Abs())
		case model.TxBidRefund, model.TxAuctionRefund:
			st.TotalRefunds = st.TotalRefunds.Add(t.Amount)
		case model.TxAuctionWin:
			st.TotalWinnings = st.TotalWinnings.Add(t.Amount)
		}
	}
	return st, nil
}

// Reconciliation compares a wallet balance with the sum of its ledger.
type Reconciliation struct {
	UserID     string          `json:"userId"`
	Balance    decimal.Decimal `json:"balance"`
	LedgerSum  decimal.Decimal `json:"ledgerSum"`
	Difference decimal.Decimal `json:"difference"`
	Entries    int             `json:"entries"`
	Consistent bool            `json:"consistent"`
}

// Reconcile checks balance == sum(completed transaction amounts).
func (s *WalletService) Reconcile(ctx context.Context, userID string) (*Reconciliation, error) {
	w, err := s.repo.GetWallet(ctx, nil, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.ListTransactions(ctx, userID, repo.TxFilter{})
	if err != nil {
		return nil, err
	}
	sum := decimal.Zero
	n := 0
	for _, t := range txs {
		if t.Status == model.TxCompleted {
			sum = sum.Add(t.Amount)
			n++
		}
	}
	rec := &Reconciliation{
		UserID: userID, Balance: w.Balance, LedgerSum: sum,
		Difference: w.Balance.Sub(sum), Entries: n,
	}
	rec.Consistent = rec.Difference.IsZero()
	if !rec.Consistent {
		s.log.Errorw("wallet out of balance with ledger", "user", userID, "balance", w.Balance, "ledger", sum)
	}
	return rec, nil
}

// withRetry reruns fn while it fails with an optimistic conflict.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, repo.ErrConflict) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 5 * time.Millisecond):
		}
	}
	return err
}
