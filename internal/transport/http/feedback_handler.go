package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/service"
	"go.uber.org/zap"
)

type feedbackReq struct {
	ProductID      string `json:"productId" binding:"required"`
	SellerID       string `json:"sellerId"`
	ProductRating  int    `json:"productRating"`
	SellerRating   int    `json:"sellerRating"`
	DeliveryRating int    `json:"deliveryRating"`
	ProductReview  string `json:"productReview"`
	SellerReview   string `json:"sellerReview"`
}

func submitFeedbackHandler(svc *service.FeedbackService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req feedbackReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		f, err := svc.Submit(c, actorFrom(c).UserID, service.FeedbackInput{
			ProductID:      req.ProductID,
			SellerID:       req.SellerID,
			ProductRating:  req.ProductRating,
			SellerRating:   req.SellerRating,
			DeliveryRating: req.DeliveryRating,
			ProductReview:  req.ProductReview,
			SellerReview:   req.SellerReview,
		})
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"feedback": f})
	}
}

func productFeedbackHandler(svc *service.FeedbackService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fs, err := svc.ListForProduct(c, c.Param("id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"feedback": fs})
	}
}

func sellerFeedbackHandler(svc *service.FeedbackService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fs, err := svc.ListForSeller(c, c.Param("id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"feedback": fs})
	}
}

func productFeedbackStatsHandler(svc *service.FeedbackService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svc.ProductStats(c, c.Param("id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

func sellerFeedbackStatsHandler(svc *service.FeedbackService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svc.SellerStats(c, c.Param("id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

type respondReq struct {
	Response string `json:"response" binding:"required"`
}

func respondFeedbackHandler(svc *service.FeedbackService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req respondReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		f, err := svc.Respond(c, actorFrom(c).UserID, c.Param("id"), req.Response)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"feedback": f})
	}
}

type moderateReq struct {
	Status model.FeedbackStatus `json:"status" binding:"required"`
}

func moderateFeedbackHandler(svc *service.FeedbackService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req moderateReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		f, err := svc.Moderate(c, c.Param("id"), req.Status)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"feedback": f})
	}
}
