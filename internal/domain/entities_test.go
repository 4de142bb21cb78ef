package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMotorcycleStatusFor(t *testing.T) {
	cases := []struct {
		name    string
		auction Auction
		want    MotorcycleStatus
	}{
		{"active", Auction{Status: AuctionActive}, MotorcycleAvailable},
		{"pending accepted", Auction{Status: AuctionPendingCollection, BidAccepted: true}, MotorcyclePendingCollection},
		{"pending awaiting acceptance", Auction{Status: AuctionPendingCollection}, MotorcyclePendingCollection},
		{"collected", Auction{Status: AuctionCompleted, BidAccepted: true, CollectionConfirmed: true}, MotorcycleSold},
		{"closed without bids", Auction{Status: AuctionCompleted}, MotorcycleAvailable},
		{"no sale", Auction{Status: AuctionNoSale}, MotorcycleAvailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MotorcycleStatusFor(&tc.auction))
		})
	}
}

func TestBidBefore(t *testing.T) {
	now := time.Now()
	a := &Bid{CreatedAt: now, Seq: 2}
	b := &Bid{CreatedAt: now, Seq: 3}
	c := &Bid{CreatedAt: now.Add(-time.Second), Seq: 9}

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, c.Before(a))
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, errors.Is(ErrAuctionEnded, ErrInvalidState))
	assert.True(t, errors.Is(ErrNotWinner, ErrUnauthorized))
	assert.True(t, errors.Is(ErrBidBelowIncrement, ErrValidation))
	assert.True(t, errors.Is(NotFoundf("auction %s", "x"), ErrNotFound))
	assert.False(t, errors.Is(ErrNotSeller, ErrNotFound))
}
