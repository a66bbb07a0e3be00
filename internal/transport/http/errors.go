package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/auction-market/internal/service"
	"go.uber.org/zap"
)

// statusFor maps service errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidBid),
		errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrAuctionNotActive),
		errors.Is(err, service.ErrAuctionStillOpen),
		errors.Is(err, service.ErrSellerMismatch):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrAdminCannotBid),
		errors.Is(err, service.ErrOwnAuction),
		errors.Is(err, service.ErrNotWinner):
		return http.StatusForbidden
	case errors.Is(err, service.ErrWalletNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrFeedbackNotFound),
		errors.Is(err, service.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateFeedback),
		errors.Is(err, service.ErrAlreadyResponded),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError surfaces business errors verbatim and hides everything else
// behind a generic message.
func writeError(c *gin.Context, log *zap.SugaredLogger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorw("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	body := gin.H{"error": err.Error()}
	var rejected *service.BidRejectedError
	if errors.As(err, &rejected) && !rejected.NextValid.IsZero() {
		body["nextValidAmount"] = rejected.NextValid
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
