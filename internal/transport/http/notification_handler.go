package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/auction-market/internal/service"
	"go.uber.org/zap"
)

func listNotificationsHandler(svc *service.NotificationService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		unread := c.Query("unread") == "true"
		ns, err := svc.List(c, actorFrom(c).UserID, unread, limit)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": ns})
	}
}

func unreadCountHandler(svc *service.NotificationService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svc.UnreadCount(c, actorFrom(c).UserID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"unread": n})
	}
}

func markReadHandler(svc *service.NotificationService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.MarkRead(c, actorFrom(c).UserID, c.Param("id")); err != nil {
			writeError(c, log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func markAllReadHandler(svc *service.NotificationService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svc.MarkAllRead(c, actorFrom(c).UserID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": n})
	}
}
