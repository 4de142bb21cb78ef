package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"motortrade/internal/domain"
	"motortrade/internal/store"
)

func TestUpdateCommitsAllWrites(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutMotorcycle(ctx, &domain.Motorcycle{ID: "m1", DealerID: "d1", Status: domain.MotorcycleAvailable}); err != nil {
			return err
		}
		return tx.PutAuction(ctx, &domain.Auction{ID: "a1", MotorcycleID: "m1", SellerID: "d1", Status: domain.AuctionActive})
	})
	require.NoError(t, err)

	a, err := s.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, domain.AuctionActive, a.Status)
	_, err = s.GetMotorcycle(ctx, "m1")
	require.NoError(t, err)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.PutAuction(ctx, &domain.Auction{ID: "a1"}))
		// visible inside the transaction
		_, err := tx.GetAuction(ctx, "a1")
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetAuction(ctx, "a1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteInsideTx(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		return tx.PutAuction(ctx, &domain.Auction{ID: "a1"})
	}))

	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.DeleteAuction(ctx, "a1"))
		_, err := tx.GetAuction(ctx, "a1")
		require.ErrorIs(t, err, domain.ErrNotFound)
		list, err := tx.ListAuctions(ctx, store.AuctionFilter{})
		require.NoError(t, err)
		require.Empty(t, list)
		return nil
	}))

	_, err := s.GetAuction(ctx, "a1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		return tx.PutUser(ctx, &domain.User{ID: "u1", Favorites: []string{"u2"}})
	}))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	u.Favorites[0] = "mutated"

	again, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"u2"}, again.Favorites)
}

func TestListBidsPlacementOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		for _, b := range []*domain.Bid{
			{ID: "b1", AuctionID: "a1", Amount: 100, CreatedAt: at},
			{ID: "b2", AuctionID: "a1", Amount: 200, CreatedAt: at},
			{ID: "b3", AuctionID: "a1", Amount: 50, CreatedAt: at.Add(-time.Minute)},
			{ID: "x", AuctionID: "other", Amount: 1, CreatedAt: at},
		} {
			if err := tx.PutBid(ctx, b); err != nil {
				return err
			}
		}
		return nil
	}))

	bids, err := s.ListBids(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.Equal(t, []string{"b3", "b1", "b2"}, []string{bids[0].ID, bids[1].ID, bids[2].ID})
	require.Less(t, bids[1].Seq, bids[2].Seq)
}

func TestListAuctionsFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		_ = tx.PutAuction(ctx, &domain.Auction{ID: "a1", SellerID: "s1", Status: domain.AuctionActive, EndTime: now.Add(-time.Minute)})
		_ = tx.PutAuction(ctx, &domain.Auction{ID: "a2", SellerID: "s1", Status: domain.AuctionActive, EndTime: now.Add(time.Hour)})
		return tx.PutAuction(ctx, &domain.Auction{ID: "a3", SellerID: "s2", Status: domain.AuctionNoSale, EndTime: now})
	}))

	due, err := s.ListAuctions(ctx, store.AuctionFilter{
		Statuses:   []domain.AuctionStatus{domain.AuctionActive},
		EndsBefore: now,
	})
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "a1", due[0].ID)

	mine, err := s.ListAuctions(ctx, store.AuctionFilter{SellerID: "s1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
}
