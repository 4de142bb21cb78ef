// Package ledger owns bids: admission rules, the highest-bid projection and
// seller-only access to an auction's bid list.
package ledger

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"motortrade/internal/domain"
	"motortrade/internal/store"
)

// Highest returns the bid with the largest amount; ties go to the bid
// placed first. It is recomputed from the full bid set on every call.
func Highest(bids []domain.Bid) *domain.Bid {
	var best *domain.Bid
	for i := range bids {
		b := &bids[i]
		if best == nil || b.Amount > best.Amount || (b.Amount == best.Amount && b.Before(best)) {
			best = b
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// ByAmount orders bids highest first, ties by placement order.
func ByAmount(bids []domain.Bid) []domain.Bid {
	out := slices.Clone(bids)
	slices.SortStableFunc(out, func(a, b domain.Bid) int {
		switch {
		case a.Amount != b.Amount:
			if a.Amount > b.Amount {
				return -1
			}
			return 1
		case a.Before(&b):
			return -1
		case b.Before(&a):
			return 1
		}
		return 0
	})
	return out
}

// Bidders returns the distinct bidder ids in first-bid order.
func Bidders(bids []domain.Bid) []string {
	var out []string
	for _, b := range bids {
		if !slices.Contains(out, b.BidderID) {
			out = append(out, b.BidderID)
		}
	}
	return out
}

type Ledger struct {
	store store.Reader
	// minIncrement > 0 requires every bid to beat the current highest by
	// at least that many units. 0 admits any positive amount.
	minIncrement int64
}

func New(r store.Reader, minIncrement int64) *Ledger {
	return &Ledger{store: r, minIncrement: minIncrement}
}

// Admit checks a bid against the auction as read inside the caller's
// transaction. Checks run in order: status, end time, self-bid, amount.
func (l *Ledger) Admit(a *domain.Auction, bids []domain.Bid, bidderID string, amount int64, now time.Time) error {
	if a.Status != domain.AuctionActive {
		return domain.ErrAuctionNotActive
	}
	if !now.Before(a.EndTime) {
		return domain.ErrAuctionEnded
	}
	if bidderID == a.SellerID {
		return domain.ErrOwnAuction
	}
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if l.minIncrement > 0 {
		if top := Highest(bids); top != nil && amount < top.Amount+l.minIncrement {
			return domain.ErrBidBelowIncrement
		}
	}
	return nil
}

// Append admits and stores a bid inside tx.
func (l *Ledger) Append(ctx context.Context, tx store.Tx, a *domain.Auction, bidderID string, amount int64, now time.Time) (*domain.Bid, []domain.Bid, error) {
	bids, err := tx.ListBids(ctx, a.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := l.Admit(a, bids, bidderID, amount, now); err != nil {
		return nil, nil, err
	}
	b := &domain.Bid{
		ID:        uuid.NewString(),
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}
	if err := tx.PutBid(ctx, b); err != nil {
		return nil, nil, err
	}
	return b, append(bids, *b), nil
}

// HighestBid is nil when the auction has no bids.
func (l *Ledger) HighestBid(ctx context.Context, auctionID string) (*domain.Bid, error) {
	bids, err := l.store.ListBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return Highest(bids), nil
}

// BidsForAuction returns the bid list, highest first, to the seller only.
func (l *Ledger) BidsForAuction(ctx context.Context, auctionID, callerID string) ([]domain.Bid, error) {
	a, err := l.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.SellerID != callerID {
		return nil, domain.ErrNotSeller
	}
	bids, err := l.store.ListBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return ByAmount(bids), nil
}
