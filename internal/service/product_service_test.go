package service

import (
	"testing"
	"time"

	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductCreate_Validation(t *testing.T) {
	f := newFixture(t)
	vendor := model.Actor{UserID: "v1", Role: model.RoleVendor}
	ok := CreateProductInput{Title: "Clock", StartingPrice: dec("10"), DurationHours: 24}

	_, err := f.products.Create(f.ctx, buyer("b1"), ok)
	assert.ErrorIs(t, err, ErrForbidden)

	bad := []CreateProductInput{
		{Title: "  ", StartingPrice: dec("10"), DurationHours: 24},
		{Title: "Clock", StartingPrice: dec("0"), DurationHours: 24},
		{Title: "Clock", StartingPrice: dec("10"), DurationHours: 0},
		{Title: "Clock", StartingPrice: dec("10"), DurationHours: MaxDurationHours + 1},
	}
	for _, in := range bad {
		_, err := f.products.Create(f.ctx, vendor, in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	p, err := f.products.Create(f.ctx, vendor, ok)
	require.NoError(t, err)
	assert.Equal(t, model.ProductPending, p.Status)
	requireAmount(t, "10", p.CurrentPrice)
	assert.Nil(t, p.EndTime)
}

func TestProductReview(t *testing.T) {
	f := newFixture(t)
	vendor := model.Actor{UserID: "v1", Role: model.RoleVendor}
	in := CreateProductInput{Title: "Clock", Category: "home", StartingPrice: dec("10"), DurationHours: 48}

	p, err := f.products.Create(f.ctx, vendor, in)
	require.NoError(t, err)
	_, err = f.products.Review(f.ctx, p.ID, model.ProductEnded, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err = f.products.Review(f.ctx, p.ID, model.ProductActive, "ok")
	require.NoError(t, err)
	assert.Equal(t, model.ProductActive, p.Status)
	require.NotNil(t, p.EndTime)
	assert.True(t, p.EndTime.Equal(f.clock.Add(48*time.Hour)))

	_, err = f.products.Review(f.ctx, p.ID, model.ProductRejected, "changed my mind")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	other, err := f.products.Create(f.ctx, vendor, in)
	require.NoError(t, err)
	other, err = f.products.Review(f.ctx, other.ID, model.ProductRejected, "blurry photos")
	require.NoError(t, err)
	assert.Equal(t, "blurry photos", other.AdminRemarks)

	ns := f.notificationsOf(t, "v1")
	assert.True(t, hasNotification(ns, model.NotifyAuctionApproved))
	assert.True(t, hasNotification(ns, model.NotifyAuctionRejected))

	_, err = f.products.Review(f.ctx, "missing", model.ProductActive, "")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductListAndNextBid(t *testing.T) {
	f := newFixture(t)
	p := f.liveAuction(t, "v1", "1000", 24)
	_, err := f.products.Create(f.ctx, model.Actor{UserID: "v1", Role: model.RoleVendor}, CreateProductInput{
		Title: "Pending", StartingPrice: dec("5"), DurationHours: 1,
	})
	require.NoError(t, err)

	active, err := f.products.List(f.ctx, repo.ProductFilter{Status: model.ProductActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, p.ID, active[0].ID)

	byCategory, err := f.products.List(f.ctx, repo.ProductFilter{Category: "electronics"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	guide, err := f.products.NextBid(f.ctx, p.ID)
	require.NoError(t, err)
	requireAmount(t, "50", guide.Increment)
	requireAmount(t, "1050", guide.NextValidAmount)

	f.fund(t, "b1", "2000")
	_, err = f.bidding.PlaceBid(f.ctx, buyer("b1"), p.ID, dec("1150"))
	require.NoError(t, err)
	guide, err = f.products.NextBid(f.ctx, p.ID)
	require.NoError(t, err)
	requireAmount(t, "1200", guide.NextValidAmount)

	_, err = f.products.Get(f.ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}
