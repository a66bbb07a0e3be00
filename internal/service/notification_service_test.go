package service

import (
	"context"
	"errors"
	"testing"

	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotify_Persists(t *testing.T) {
	f := newFixture(t)

	n := f.notifications.Notify(f.ctx, NotificationEvent{
		RecipientID: "u1", SenderID: "u2", Type: model.NotifyOutbid,
		Title: "Outbid", Message: "someone bid more", Data: map[string]interface{}{"productId": "p1"},
	})
	require.NotNil(t, n)
	require.NotNil(t, n.SenderID)
	assert.Equal(t, "u2", *n.SenderID)
	assert.JSONEq(t, `{"productId":"p1"}`, string(n.Data))

	assert.Nil(t, f.notifications.Notify(f.ctx, NotificationEvent{Type: model.NotifyOutbid}), "no recipient")
}

type failingNotificationStore struct{ repo.NotificationStore }

func (failingNotificationStore) CreateNotification(context.Context, *model.Notification) error {
	return errors.New("db gone")
}

func TestNotify_FailureIsSwallowed(t *testing.T) {
	svc := NewNotificationService(failingNotificationStore{}, zap.NewNop().Sugar())
	assert.NotPanics(t, func() {
		n := svc.Notify(context.Background(), NotificationEvent{RecipientID: "u1", Type: model.NotifyOutbid, Title: "x"})
		assert.Nil(t, n)
	})
}

func TestNotificationReadState(t *testing.T) {
	f := newFixture(t)
	var ids []string
	for i := 0; i < 3; i++ {
		n := f.notifications.Notify(f.ctx, NotificationEvent{RecipientID: "u1", Type: model.NotifyBidPlaced, Title: "bid"})
		require.NotNil(t, n)
		ids = append(ids, n.ID)
	}
	f.notifications.Notify(f.ctx, NotificationEvent{RecipientID: "u2", Type: model.NotifyBidPlaced, Title: "bid"})

	count, err := f.notifications.UnreadCount(f.ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	require.NoError(t, f.notifications.MarkRead(f.ctx, "u1", ids[0]))
	assert.ErrorIs(t, f.notifications.MarkRead(f.ctx, "u2", ids[1]), ErrNotificationNotFound)

	unread, err := f.notifications.List(f.ctx, "u1", true, 0)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	n, err := f.notifications.MarkAllRead(f.ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	count, err = f.notifications.UnreadCount(f.ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = f.notifications.UnreadCount(f.ctx, "u2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
