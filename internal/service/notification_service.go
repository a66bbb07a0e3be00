package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/repo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationEvent is a user-facing event to record.
type NotificationEvent struct {
	RecipientID string
	SenderID    string
	Type        model.NotificationType
	Title       string
	Message     string
	Data        map[string]interface{}
}

type NotificationService struct {
	store repo.NotificationStore
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewNotificationService(store repo.NotificationStore, log *zap.SugaredLogger) *NotificationService {
	return &NotificationService{store: store, log: log, now: time.Now}
}

// Notify records the event. It never fails the caller: persistence errors
// are logged and the returned notification is nil.
func (s *NotificationService) Notify(ctx context.Context, e NotificationEvent) *model.Notification {
	if e.RecipientID == "" {
		return nil
	}
	n := &model.Notification{
		RecipientID: e.RecipientID,
		Type:        e.Type,
		Title:       e.Title,
		Message:     e.Message,
	}
	if e.SenderID != "" {
		sender := e.SenderID
		n.SenderID = &sender
	}
	if len(e.Data) > 0 {
		b, err := json.Marshal(e.Data)
		if err != nil {
			s.log.Warnw("marshal notification data", "type", e.Type, "err", err)
		} else {
			n.Data = datatypes.JSON(b)
		}
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		s.log.Errorw("create notification", "recipient", e.RecipientID, "type", e.Type, "err", err)
		return nil
	}
	return n
}

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListNotifications(ctx, userID, unreadOnly, limit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	err := s.store.MarkNotificationRead(ctx, userID, id, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, userID, s.now())
}
