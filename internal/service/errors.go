package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation errors.
var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidInput  = errors.New("invalid input")
)

// Authorization errors.
var (
	ErrForbidden      = errors.New("forbidden")
	ErrAdminCannotBid = errors.New("administrators cannot place bids")
	ErrOwnAuction     = errors.New("vendors cannot bid on their own auction")
)

// Not-found errors.
var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrFeedbackNotFound     = errors.New("feedback not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Business-rule violations.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidBid        = errors.New("invalid bid")
	ErrAuctionNotActive  = errors.New("auction is not active")
	ErrAuctionStillOpen  = errors.New("auction has not ended yet")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateFeedback = errors.New("feedback already submitted for this product")
	ErrNotWinner         = errors.New("only the winning bidder can leave feedback")
	ErrSellerMismatch    = errors.New("seller does not match product vendor")
	ErrAlreadyResponded  = errors.New("seller already responded to this feedback")
)

// BidRejectedError carries the validator's reason and the next acceptable amount.
type BidRejectedError struct {
	Reason    string
	NextValid decimal.Decimal
}

func (e *BidRejectedError) Error() string {
	if e.NextValid.IsZero() {
		return e.Reason
	}
	return fmt.Sprintf("%s (next valid amount: %s)", e.Reason, e.NextValid.String())
}

func (e *BidRejectedError) Unwrap() error { return ErrInvalidBid }
