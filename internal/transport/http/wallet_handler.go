package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/repo"
	"github.com/richardliu001/auction-market/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fundsReq struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod" binding:"max=32"`
	Description   string          `json:"description" binding:"max=255"`
}

func walletHandler(svc *service.WalletService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		w, err := svc.GetWallet(c, actorFrom(c).UserID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"wallet": w})
	}
}

// balanceHandler serves the balance from the Redis cache when it is warm.
func balanceHandler(svc *service.WalletService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := actorFrom(c).UserID
		bal, err := svc.GetBalance(c, userID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": userID, "balance": bal})
	}
}

func depositHandler(svc *service.WalletService, log *zap.SugaredLogger, notifier *service.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req fundsReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		userID := actorFrom(c).UserID
		res, err := svc.Deposit(c, userID, req.Amount, req.PaymentMethod, req.Description)
		if err != nil {
			writeError(c, log, err)
			return
		}
		notifier.Notify(c, service.NotificationEvent{
			RecipientID: userID,
			Type:        model.NotifyWalletDeposit,
			Title:       "Deposit received",
			Message:     req.Amount.String() + " was added to your wallet",
			Data:        map[string]interface{}{"amount": req.Amount, "balance": res.Wallet.Balance},
		})
		c.JSON(http.StatusOK, gin.H{"wallet": res.Wallet, "transaction": res.Entry})
	}
}

func withdrawHandler(svc *service.WalletService, log *zap.SugaredLogger, notifier *service.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req fundsReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		userID := actorFrom(c).UserID
		res, err := svc.Withdraw(c, userID, req.Amount, req.PaymentMethod, req.Description)
		if err != nil {
			writeError(c, log, err)
			return
		}
		notifier.Notify(c, service.NotificationEvent{
			RecipientID: userID,
			Type:        model.NotifyWalletWithdrawal,
			Title:       "Withdrawal processed",
			Message:     req.Amount.String() + " was withdrawn from your wallet",
			Data:        map[string]interface{}{"amount": req.Amount, "balance": res.Wallet.Balance},
		})
		c.JSON(http.StatusOK, gin.H{"wallet": res.Wallet, "transaction": res.Entry})
	}
}

func transactionsHandler(svc *service.WalletService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		f := repo.TxFilter{Limit: limit, Type: model.TxType(c.Query("type"))}
		if f.Type != "" && !f.Type.Valid() {
			badRequest(c, "invalid type")
			return
		}
		if s := c.Query("since"); s != "" {
			since, err := time.Parse(time.RFC3339, s)
			if err != nil {
				badRequest(c, "invalid since")
				return
			}
			f.Since = since
		}
		txs, err := svc.GetHistory(c, actorFrom(c).UserID, f)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": txs})
	}
}

func walletStatsHandler(svc *service.WalletService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svc.Stats(c, actorFrom(c).UserID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

type adjustReq struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" binding:"max=255"`
}

func adjustHandler(svc *service.WalletService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req adjustReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.Adjust(c, c.Param("userId"), req.Amount, req.Description)
		if err != nil {
			writeError(c, log, err)
			return
		}
		log.Infow("wallet adjusted", "admin", actorFrom(c).UserID, "user", c.Param("userId"), "amount", req.Amount)
		c.JSON(http.StatusOK, gin.H{"wallet": res.Wallet, "transaction": res.Entry})
	}
}

func reconcileHandler(svc *service.WalletService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := svc.Reconcile(c, c.Param("userId"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}
