package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/repo"
	"github.com/richardliu001/auction-market/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type placeBidReq struct {
	ProductID string          `json:"productId" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

func placeBidHandler(svc *service.BiddingService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req placeBidReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		bid, err := svc.PlaceBid(c, actorFrom(c), req.ProductID, req.Amount)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"bid": bid})
	}
}

func productBidsHandler(svc *service.BiddingService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		bids, err := svc.ListProductBids(c, c.Param("productId"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bids": bids})
	}
}

func myBidsHandler(svc *service.BiddingService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		bids, err := svc.ListUserBids(c, actorFrom(c).UserID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bids": bids})
	}
}

// bidStatsHandler reports the caller's stats; admins get marketplace totals.
func bidStatsHandler(svc *service.BiddingService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := actorFrom(c)
		bidder := a.UserID
		if a.IsAdmin() {
			bidder = c.Query("userId")
		}
		st, err := svc.Stats(c, bidder)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

type createProductReq struct {
	Title         string          `json:"title" binding:"required,max=200"`
	Description   string          `json:"description"`
	Category      string          `json:"category" binding:"max=64"`
	StartingPrice decimal.Decimal `json:"startingPrice"`
	Duration      int             `json:"duration" binding:"required"`
}

func createProductHandler(svc *service.ProductService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createProductReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, err := svc.Create(c, actorFrom(c), service.CreateProductInput{
			Title:         req.Title,
			Description:   req.Description,
			Category:      req.Category,
			StartingPrice: req.StartingPrice,
			DurationHours: req.Duration,
		})
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"product": p})
	}
}

func listProductsHandler(svc *service.ProductService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		ps, err := svc.List(c, repo.ProductFilter{
			Status:   model.ProductStatus(c.Query("status")),
			Category: c.Query("category"),
			VendorID: c.Query("vendorId"),
			Limit:    limit,
		})
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": ps})
	}
}

func getProductHandler(svc *service.ProductService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Get(c, c.Param("id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": p})
	}
}

func nextBidHandler(svc *service.ProductService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		g, err := svc.NextBid(c, c.Param("id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, g)
	}
}

type reviewReq struct {
	Status  model.ProductStatus `json:"status" binding:"required"`
	Remarks string              `json:"remarks" binding:"max=500"`
}

func reviewProductHandler(svc *service.ProductService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reviewReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, err := svc.Review(c, c.Param("id"), req.Status, req.Remarks)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": p})
	}
}

func runSettlementHandler(sw *service.Sweeper, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rep, err := sw.RunOnce(c)
		if err != nil {
			writeError(c, log, err)
			return
		}
		if rep == nil {
			c.JSON(http.StatusAccepted, gin.H{"message": "a settlement pass is already running"})
			return
		}
		c.JSON(http.StatusOK, rep)
	}
}
