package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/auction-market/internal/config"
	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/service"
	"go.uber.org/zap"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Wallets       *service.WalletService
	Bidding       *service.BiddingService
	Products      *service.ProductService
	Feedback      *service.FeedbackService
	Notifications *service.NotificationService
	Sweeper       *service.Sweeper
}

func NewRouter(svc Services, rl config.RateLimitConfig, auth config.AuthConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(rl.RPS, rl.Burst))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	RegisterHandlers(r, svc, AuthMiddleware([]byte(auth.JWTSecret), auth.Issuer), log)
	return r
}

func RegisterHandlers(r *gin.Engine, svc Services, authn gin.HandlerFunc, log *zap.SugaredLogger) {
	v1 := r.Group("/api/v1")

	// public reads
	v1.GET("/bids/product/:productId", productBidsHandler(svc.Bidding, log))
	v1.GET("/products", listProductsHandler(svc.Products, log))
	v1.GET("/products/:id", getProductHandler(svc.Products, log))
	v1.GET("/products/:id/next-bid", nextBidHandler(svc.Products, log))
	v1.GET("/feedback/product/:id", productFeedbackHandler(svc.Feedback, log))
	v1.GET("/feedback/product/:id/stats", productFeedbackStatsHandler(svc.Feedback, log))
	v1.GET("/feedback/seller/:id", sellerFeedbackHandler(svc.Feedback, log))
	v1.GET("/feedback/seller/:id/stats", sellerFeedbackStatsHandler(svc.Feedback, log))

	authed := v1.Group("", authn)
	{
		authed.POST("/bids", placeBidHandler(svc.Bidding, log))
		authed.GET("/bids/my", myBidsHandler(svc.Bidding, log))
		authed.GET("/bids/stats", bidStatsHandler(svc.Bidding, log))

		authed.GET("/wallet", walletHandler(svc.Wallets, log))
		authed.GET("/wallet/balance", balanceHandler(svc.Wallets, log))
		authed.POST("/wallet/deposit", depositHandler(svc.Wallets, log, svc.Notifications))
		authed.POST("/wallet/withdraw", withdrawHandler(svc.Wallets, log, svc.Notifications))
		authed.GET("/wallet/transactions", transactionsHandler(svc.Wallets, log))
		authed.GET("/wallet/stats", walletStatsHandler(svc.Wallets, log))

		authed.POST("/products", RequireRole(model.RoleVendor), createProductHandler(svc.Products, log))

		authed.POST("/feedback", submitFeedbackHandler(svc.Feedback, log))
		authed.POST("/feedback/:id/response", respondFeedbackHandler(svc.Feedback, log))

		authed.GET("/notifications", listNotificationsHandler(svc.Notifications, log))
		authed.GET("/notifications/unread-count", unreadCountHandler(svc.Notifications, log))
		authed.PATCH("/notifications/read-all", markAllReadHandler(svc.Notifications, log))
		authed.PATCH("/notifications/:id/read", markReadHandler(svc.Notifications, log))
	}

	admin := v1.Group("/admin", authn, RequireRole(model.RoleAdmin))
	{
		admin.PATCH("/products/:id/review", reviewProductHandler(svc.Products, log))
		admin.POST("/wallets/:userId/adjust", adjustHandler(svc.Wallets, log))
		admin.GET("/wallets/:userId/reconcile", reconcileHandler(svc.Wallets, log))
		admin.PATCH("/feedback/:id/status", moderateFeedbackHandler(svc.Feedback, log))
		admin.POST("/settlement/run", runSettlementHandler(svc.Sweeper, log))
	}
}
