package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) notificationsOf(t *testing.T, userID string) []model.Notification {
	t.Helper()
	ns, err := f.notifications.List(f.ctx, userID, false, 0)
	require.NoError(t, err)
	return ns
}

func hasNotification(ns []model.Notification, typ model.NotificationType) bool {
	for _, n := range ns {
		if n.Type == typ {
			return true
		}
	}
	return false
}

func TestPlaceBid_HoldsFunds(t *testing.T) {
	f := newFixture(t)
	p := f.liveAuction(t, "vendor", "1000", 24)
	f.fund(t, "alice", "5000")

	bid, err := f.bidding.PlaceBid(f.ctx, buyer("alice"), p.ID, dec("1050"))
	require.NoError(t, err)
	assert.Equal(t, model.BidActive, bid.Status)
	requireAmount(t, "1050", bid.HeldAmount)

	requireAmount(t, "3950", f.balance(t, "alice"))
	requireAmount(t, "1050", f.product(t, p.ID).CurrentPrice)
	f.requireLedgerBalanced(t, "alice")

	txs, err := f.wallets.GetHistory(f.ctx, "alice", repo.TxFilter{Type: model.TxBid})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.NotNil(t, txs[0].RelatedBidID)
	assert.Equal(t, bid.ID, *txs[0].RelatedBidID)
	assert.Equal(t, p.ID, *txs[0].RelatedProductID)
	requireAmount(t, "-1050", txs[0].Amount)
	requireAmount(t, "3950", txs[0].BalanceAfter)

	assert.True(t, hasNotification(f.notificationsOf(t, "vendor"), model.NotifyBidPlaced))
}

func TestPlaceBid_Rejections(t *testing.T) {
	f := newFixture(t)
	p := f.liveAuction(t, "vendor", "1000", 24)
	f.fund(t, "alice", "5000")

	_, err := f.bidding.PlaceBid(f.ctx, model.Actor{UserID: "root", Role: model.RoleAdmin}, p.ID, dec("1050"))
	assert.ErrorIs(t, err, ErrAdminCannotBid)

	_, err = f.bidding.PlaceBid(f.ctx, model.Actor{UserID: "vendor", Role: model.RoleVendor}, p.ID, dec("1050"))
	assert.ErrorIs(t, err, ErrOwnAuction)

	_, err = f.bidding.PlaceBid(f.ctx, buyer("alice"), "missing", dec("1050"))
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = f.bidding.PlaceBid(f.ctx, buyer("alice"), p.ID, dec("-1"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.bidding.PlaceBid(f.ctx, buyer("alice"), p.ID, dec("1075"))
	var rejected *BidRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.ErrorIs(t, err, ErrInvalidBid)
	assert.Equal(t, reasonMisaligned, rejected.Reason)
	requireAmount(t, "1100", rejected.NextValid)

	_, err = f.bidding.PlaceBid(f.ctx, buyer("alice"), p.ID, dec("1000"))
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, reasonNotHigher, rejected.Reason)

	requireAmount(t, "5000", f.balance(t, "alice"))
	requireAmount(t, "1000", f.product(t, p.ID).CurrentPrice)
}

func TestPlaceBid_AuctionNotActive(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "5000")

	pending, err := f.products.Create(f.ctx, model.Actor{UserID: "vendor", Role: model.RoleVendor}, CreateProductInput{
		Title: "Lamp", StartingPrice: dec("100"), DurationHours: 1,
	})
	require.NoError(t, err)
	_, err = f.bidding.PlaceBid(f.ctx, buyer("alice"), pending.ID, dec("105"))
	assert.ErrorIs(t, err, ErrAuctionNotActive)

	live := f.liveAuction(t, "vendor", "100", 1)
	f.clock = f.clock.Add(time.Hour)
	_, err = f.bidding.PlaceBid(f.ctx, buyer("alice"), live.ID, dec("105"))
	assert.ErrorIs(t, err, ErrAuctionNotActive, "end time reached")
}

func TestPlaceBid_InsufficientFundsRecordsNothing(t *testing.T) {
	f := newFixture(t)
	p := f.liveAuction(t, "vendor", "1000", 24)
	f.fund(t, "alice", "1000")

	_, err := f.bidding.PlaceBid(f.ctx, buyer("alice"), p.ID, dec("1050"))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	bids, err := f.bidding.ListProductBids(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, bids)
	requireAmount(t, "1000", f.balance(t, "alice"))
	requireAmount(t, "1000", f.product(t, p.ID).CurrentPrice)
	assert.Len(t, f.transactions(t, "alice"), 1)
}

func TestPlaceBid_OutbidKeepsFundsHeld(t *testing.T) {
	f := newFixture(t)
	p := f.liveAuction(t, "vendor", "1000", 24)
	f.fund(t, "alice", "5000")
	f.fund(t, "bob", "5000")

	_, err := f.bidding.PlaceBid(f.ctx, buyer("alice"), p.ID, dec("1050"))
	require.NoError(t, err)
	_, err = f.bidding.PlaceBid(f.ctx, buyer("bob"), p.ID, dec("1100"))
	require.NoError(t, err)

	// alice stays charged until settlement
	requireAmount(t, "3950", f.balance(t, "alice"))
	requireAmount(t, "3900", f.balance(t, "bob"))
	assert.True(t, hasNotification(f.notificationsOf(t, "alice"), model.NotifyOutbid))
	assert.False(t, hasNotification(f.notificationsOf(t, "bob"), model.NotifyOutbid))

	bids, err := f.bidding.ListProductBids(f.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, "bob", bids[0].BidderID)
}

func TestPlaceBid_LeaderRaiseChargesDifference(t *testing.T) {
	f := newFixture(t)
	p := f.liveAuction(t, "vendor", "1000", 24)
	f.fund(t, "alice", "1200")

	first, err := f.bidding.PlaceBid(f.ctx, buyer("alice"), p.ID, dec("1050"))
	require.NoError(t, err)
	second, err := f.bidding.PlaceBid(f.ctx, buyer("alice"), p.ID, dec("1150"))
	require.NoError(t, err)

	requireAmount(t, "50", f.balance(t, "alice"))
	requireAmount(t, "0", f.bid(t, first.ID).HeldAmount)
	requireAmount(t, "1150", f.bid(t, second.ID).HeldAmount)
	f.requireLedgerBalanced(t, "alice")

	txs := f.transactions(t, "alice")
	var charged []string
	for _, tx := range txs {
		if tx.Type == model.TxBid {
			charged = append(charged, tx.Amount.String())
		}
	}
	assert.ElementsMatch(t, []string{"-1050", "-100"}, charged)
	assert.False(t, hasNotification(f.notificationsOf(t, "alice"), model.NotifyOutbid))
}

func TestBidStats(t *testing.T) {
	f := newFixture(t)
	p := f.liveAuction(t, "vendor", "1000", 24)
	f.fund(t, "alice", "5000")
	f.fund(t, "bob", "5000")

	for _, step := range []struct {
		who, amt string
	}{{"alice", "1050"}, {"bob", "1100"}, {"alice", "1200"}} {
		_, err := f.bidding.PlaceBid(f.ctx, buyer(step.who), p.ID, dec(step.amt))
		require.NoError(t, err)
	}

	st, err := f.bidding.Stats(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalBids)
	assert.Equal(t, 2, st.ActiveBids)
	assert.Equal(t, 1, st.Products)
	requireAmount(t, "2250", st.TotalAmount)
	requireAmount(t, "1125", st.AverageAmount)
	requireAmount(t, "1200", st.HighestAmount)
	requireAmount(t, "2250", st.HeldAmount)

	all, err := f.bidding.Stats(f.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, all.TotalBids)

	mine, err := f.bidding.ListUserBids(f.ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.bidding.ListProductBids(f.ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestPlaceBid_ConcurrentSameAmountOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	p := f.liveAuction(t, "vendor", "1000", 24)

	const bidders = 5
	for i := 0; i < bidders; i++ {
		f.fund(t, fmt.Sprintf("bidder-%d", i), "2000")
	}
	errs := make([]error, bidders)
	var wg sync.WaitGroup
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.bidding.PlaceBid(f.ctx, buyer(fmt.Sprintf("bidder-%d", i)), p.ID, dec("1050"))
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		var rejected *BidRejectedError
		require.True(t, errors.As(err, &rejected), err)
		assert.Equal(t, reasonNotHigher, rejected.Reason)
		requireAmount(t, "1100", rejected.NextValid)
	}
	assert.Equal(t, 1, accepted)

	bids, err := f.bidding.ListProductBids(f.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	requireAmount(t, "1050", f.product(t, p.ID).CurrentPrice)
	for i := 0; i < bidders; i++ {
		id := fmt.Sprintf("bidder-%d", i)
		want := "2000"
		if id == bids[0].BidderID {
			want = "950"
		}
		requireAmount(t, want, f.balance(t, id))
		f.requireLedgerBalanced(t, id)
	}
}
