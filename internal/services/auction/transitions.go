package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"motortrade/internal/domain"
	"motortrade/internal/events"
	"motortrade/internal/services/ledger"
	"motortrade/internal/services/visibility"
	"motortrade/internal/store"
)

type step func(ctx context.Context, tx store.Tx, a *domain.Auction, out *outbox) error

// transition is the only write path for auctions. It holds the auction lock
// and runs fn in one store transaction against a row-locked read of the
// auction; side effects in out are released after commit and after the lock
// is dropped.
func (svc *auctionService) transition(ctx context.Context, op, auctionID string, fn step) (*domain.Auction, error) {
	ctx, cancel := svc.bounded(ctx)
	defer cancel()

	unlock, err := svc.locker.Lock(ctx, auctionKey(auctionID))
	if err != nil {
		return nil, svc.fail(op, auctionID, err)
	}
	defer unlock()

	var (
		out    outbox
		result *domain.Auction
	)
	err = svc.store.Update(ctx, func(tx store.Tx) error {
		out = outbox{}
		a, err := tx.GetAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, a, &out); err != nil {
			return err
		}
		result = a
		return nil
	})
	unlock()
	if err != nil {
		return nil, svc.fail(op, auctionID, err)
	}

	svc.flush(&out)
	return result, nil
}

// heldStatus is the motorcycle status implied by the auctions still on it:
// an open auction wins, then a collected sale, else the bike is available.
func heldStatus(auctions []domain.Auction) domain.MotorcycleStatus {
	for i := range auctions {
		if auctions[i].Status.Open() {
			return domain.MotorcycleStatusFor(&auctions[i])
		}
	}
	for i := range auctions {
		if auctions[i].CollectionConfirmed {
			return domain.MotorcycleSold
		}
	}
	return domain.MotorcycleAvailable
}

// save writes a together with its motorcycle, whose status is always
// re-derived from the auction.
func (svc *auctionService) save(ctx context.Context, tx store.Tx, a *domain.Auction, now time.Time, edit func(m *domain.Motorcycle)) (*domain.Motorcycle, error) {
	a.UpdatedAt = now
	if err := tx.PutAuction(ctx, a); err != nil {
		return nil, err
	}
	m, err := tx.GetMotorcycle(ctx, a.MotorcycleID)
	if err != nil {
		return nil, err
	}
	if edit != nil {
		edit(m)
	}
	m.Status = domain.MotorcycleStatusFor(a)
	m.UpdatedAt = now
	if err := tx.PutMotorcycle(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (svc *auctionService) note(ctx context.Context, tx store.Tx, out *outbox, userID string, typ domain.NotificationType, content, relatedID string) error {
	n, err := svc.notes.RecordTx(ctx, tx, userID, typ, content, relatedID)
	if err != nil {
		return err
	}
	out.notes = append(out.notes, *n)
	return nil
}

func statusChanged(a *domain.Auction, m *domain.Motorcycle) events.AuctionStatusChanged {
	return events.AuctionStatusChanged{
		AuctionID:        a.ID,
		Status:           a.Status,
		MotorcycleID:     a.MotorcycleID,
		MotorcycleStatus: m.Status,
	}
}

// PlaceBid appends a bid. Callers who cannot see the auction get NotFound.
func (svc *auctionService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (*domain.Bid, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	var bid *domain.Bid
	_, err := svc.transition(ctx, "auction.place_bid", auctionID, func(ctx context.Context, tx store.Tx, a *domain.Auction, out *outbox) error {
		// Only the auction row is locked; everything else is read plain.
		r := tx.Plain()
		viewer, err := lookupViewer(ctx, r, bidderID)
		if err != nil {
			return err
		}
		if !visibility.NewResolver(r).IsVisible(ctx, a, viewer) {
			return domain.NotFoundf("auction %s", auctionID)
		}
		now := svc.now()
		b, bids, err := svc.ledger.Append(ctx, tx, a, bidderID, amount, now)
		if err != nil {
			return err
		}
		m, err := r.GetMotorcycle(ctx, a.MotorcycleID)
		if err != nil {
			return err
		}
		if err := svc.note(ctx, tx, out, a.SellerID, domain.NotificationNewBid,
			fmt.Sprintf("New bid of £%d on your %s", amount, label(m)), a.ID); err != nil {
			return err
		}
		out.send(a.SellerID, events.NewBid{
			AuctionID: a.ID,
			BidID:     b.ID,
			BidderID:  bidderID,
			Amount:    amount,
			BidCount:  len(bids),
			PlacedAt:  b.CreatedAt,
		})
		bid = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("auction.place_bid",
		zap.String("auction_id", auctionID),
		zap.String("bid_id", bid.ID),
		zap.String("bidder_id", bidderID))
	return bid, nil
}

// EndEarly closes bidding now. With bids the auction waits for the seller
// to accept one; without bids it completes with no winner. A second call
// fails because the auction is no longer active.
func (svc *auctionService) EndEarly(ctx context.Context, auctionID, callerID string) (*domain.Auction, error) {
	a, err := svc.transition(ctx, "auction.end_early", auctionID, func(ctx context.Context, tx store.Tx, a *domain.Auction, out *outbox) error {
		if a.SellerID != callerID {
			return domain.ErrNotSeller
		}
		if a.Status != domain.AuctionActive {
			return domain.ErrAuctionNotActive
		}
		now := svc.now()
		a.EndTime = now
		return svc.close(ctx, tx, a, out, now)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("auction.end_early", zap.String("auction_id", auctionID), zap.String("status", string(a.Status)))
	return a, nil
}

// Expire is the system-side close of an active auction whose end time has
// passed. Stale wake-ups (already closed, extended, deleted) are no-ops.
func (svc *auctionService) Expire(ctx context.Context, auctionID string) error {
	_, err := svc.expire(ctx, auctionID)
	return err
}

func (svc *auctionService) expire(ctx context.Context, auctionID string) (bool, error) {
	var closed bool
	_, err := svc.transition(ctx, "auction.expire", auctionID, func(ctx context.Context, tx store.Tx, a *domain.Auction, out *outbox) error {
		now := svc.now()
		if a.Status != domain.AuctionActive || now.Before(a.EndTime) {
			return nil
		}
		closed = true
		return svc.close(ctx, tx, a, out, now)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if closed {
		zap.L().Info("auction.expire", zap.String("auction_id", auctionID))
	}
	return closed, nil
}

// ExpireDue expires every active auction past its end time and reports how
// many it closed.
func (svc *auctionService) ExpireDue(ctx context.Context) (int, error) {
	lctx, cancel := svc.bounded(ctx)
	due, err := svc.store.ListAuctions(lctx, store.AuctionFilter{
		Statuses:   []domain.AuctionStatus{domain.AuctionActive},
		EndsBefore: svc.now(),
	})
	cancel()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range due {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		closed, err := svc.expire(ctx, a.ID)
		if err != nil {
			zap.L().Warn("auction.expire_due", zap.String("auction_id", a.ID), zap.Error(err))
			continue
		}
		if closed {
			n++
		}
	}
	return n, nil
}

// close moves an active auction out of bidding. The highest bid becomes the
// candidate winner but is not accepted.
func (svc *auctionService) close(ctx context.Context, tx store.Tx, a *domain.Auction, out *outbox, now time.Time) error {
	bids, err := tx.ListBids(ctx, a.ID)
	if err != nil {
		return err
	}
	if top := ledger.Highest(bids); top != nil {
		a.Status = domain.AuctionPendingCollection
		a.WinningBidID = top.ID
	} else {
		a.Status = domain.AuctionCompleted
	}
	m, err := svc.save(ctx, tx, a, now, nil)
	if err != nil {
		return err
	}

	for _, bidder := range ledger.Bidders(bids) {
		if err := svc.note(ctx, tx, out, bidder, domain.NotificationAuctionEnded,
			fmt.Sprintf("The auction for the %s has ended", label(m)), a.ID); err != nil {
			return err
		}
	}
	if len(bids) > 0 {
		if err := svc.note(ctx, tx, out, a.SellerID, domain.NotificationAuctionEnded,
			fmt.Sprintf("Your auction for the %s ended with %d bids. Review and accept a bid", label(m), len(bids)), a.ID); err != nil {
			return err
		}
	}
	out.broadcast(statusChanged(a, m), "")
	return nil
}

// AcceptBid is allowed while bidding is open and after it closed, until a
// bid has been accepted. The auction and motorcycle move to
// pending_collection together.
func (svc *auctionService) AcceptBid(ctx context.Context, auctionID, callerID, bidID string, availableFrom *time.Time) (*domain.Auction, error) {
	if bidID == "" {
		return nil, domain.Validationf("bidId is required")
	}
	a, err := svc.transition(ctx, "auction.accept_bid", auctionID, func(ctx context.Context, tx store.Tx, a *domain.Auction, out *outbox) error {
		if a.SellerID != callerID {
			return domain.ErrNotSeller
		}
		if a.BidAccepted {
			return domain.ErrAlreadyAccepted
		}
		if !a.Status.Open() {
			return domain.ErrAuctionClosed
		}
		bid, err := tx.GetBid(ctx, bidID)
		if err != nil {
			return err
		}
		if bid.AuctionID != a.ID {
			return domain.ErrBidWrongAuction
		}

		now := svc.now()
		a.BidAccepted = true
		a.WinningBidID = bid.ID
		a.WinningBidderID = bid.BidderID
		a.Status = domain.AuctionPendingCollection
		m, err := svc.save(ctx, tx, a, now, func(m *domain.Motorcycle) {
			if availableFrom != nil {
				at := availableFrom.UTC()
				m.AvailableFrom = &at
			}
		})
		if err != nil {
			return err
		}

		if err := svc.note(ctx, tx, out, bid.BidderID, domain.NotificationBidAccepted,
			fmt.Sprintf("Your bid of £%d for the %s has been accepted", bid.Amount, label(m)), a.ID); err != nil {
			return err
		}
		out.send(bid.BidderID, events.BidAccepted{
			AuctionID:        a.ID,
			BidID:            bid.ID,
			Amount:           bid.Amount,
			MotorcycleID:     m.ID,
			AvailabilityDate: m.AvailableFrom,
		})
		out.send(a.SellerID, events.BidAcceptedConfirm{
			AuctionID: a.ID,
			BidID:     bid.ID,
			WinnerID:  bid.BidderID,
			Amount:    bid.Amount,
		})
		out.broadcast(statusChanged(a, m), "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("auction.accept_bid",
		zap.String("auction_id", auctionID),
		zap.String("bid_id", bidID),
		zap.String("winner_id", a.WinningBidderID))
	return a, nil
}

// winnerStep guards the operations reserved to the accepted bidder.
func winnerStep(a *domain.Auction, callerID string) error {
	if !a.BidAccepted {
		return domain.ErrNotAccepted
	}
	if a.WinningBidderID != callerID {
		return domain.ErrNotWinner
	}
	if a.Status != domain.AuctionPendingCollection {
		return domain.ErrAuctionClosed
	}
	return nil
}

// ConfirmDeal records the buyer's commitment. Status does not change.
func (svc *auctionService) ConfirmDeal(ctx context.Context, auctionID, callerID string) (*domain.Auction, error) {
	a, err := svc.transition(ctx, "auction.confirm_deal", auctionID, func(ctx context.Context, tx store.Tx, a *domain.Auction, out *outbox) error {
		if err := winnerStep(a, callerID); err != nil {
			return err
		}
		if a.DealConfirmed {
			return domain.ErrAlreadyConfirmed
		}
		a.DealConfirmed = true
		m, err := svc.save(ctx, tx, a, svc.now(), nil)
		if err != nil {
			return err
		}
		if err := svc.note(ctx, tx, out, a.SellerID, domain.NotificationDealConfirmed,
			fmt.Sprintf("The buyer has confirmed the deal for the %s", label(m)), a.ID); err != nil {
			return err
		}
		out.send(a.SellerID, events.DealConfirmed{AuctionID: a.ID, BuyerID: callerID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("auction.confirm_deal", zap.String("auction_id", auctionID))
	return a, nil
}

// ScheduleCollection sets the pick-up date and mirrors it onto the
// motorcycle's availability.
func (svc *auctionService) ScheduleCollection(ctx context.Context, auctionID, callerID string, date time.Time) (*domain.Auction, error) {
	if date.IsZero() {
		return nil, domain.Validationf("collectionDate is required")
	}
	date = date.UTC()
	a, err := svc.transition(ctx, "auction.schedule_collection", auctionID, func(ctx context.Context, tx store.Tx, a *domain.Auction, out *outbox) error {
		if a.SellerID != callerID {
			return domain.ErrNotSeller
		}
		if !a.BidAccepted {
			return domain.ErrNotAccepted
		}
		if a.Status != domain.AuctionPendingCollection {
			return domain.ErrAuctionClosed
		}
		a.CollectionDate = &date
		m, err := svc.save(ctx, tx, a, svc.now(), func(m *domain.Motorcycle) {
			at := date
			m.AvailableFrom = &at
		})
		if err != nil {
			return err
		}
		if err := svc.note(ctx, tx, out, a.WinningBidderID, domain.NotificationCollectionScheduled,
			fmt.Sprintf("Collection of the %s is scheduled for %s", label(m), date.Format("2 Jan 2006")), a.ID); err != nil {
			return err
		}
		out.send(a.WinningBidderID, events.CollectionScheduled{AuctionID: a.ID, CollectionDate: date})
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("auction.schedule_collection", zap.String("auction_id", auctionID), zap.Time("collection_date", date))
	return a, nil
}

// ConfirmCollection completes the sale. When deal confirmation is required
// by configuration it must have happened first.
func (svc *auctionService) ConfirmCollection(ctx context.Context, auctionID, callerID string) (*domain.Auction, error) {
	a, err := svc.transition(ctx, "auction.confirm_collection", auctionID, func(ctx context.Context, tx store.Tx, a *domain.Auction, out *outbox) error {
		if err := winnerStep(a, callerID); err != nil {
			return err
		}
		if svc.requireDeal && !a.DealConfirmed {
			return domain.ErrDealNotConfirmed
		}
		now := svc.now()
		a.CollectionConfirmed = true
		a.Status = domain.AuctionCompleted
		m, err := svc.save(ctx, tx, a, now, func(m *domain.Motorcycle) {
			m.SoldAt = &now
		})
		if err != nil {
			return err
		}
		content := fmt.Sprintf("Collection of the %s has been confirmed", label(m))
		for _, user := range []string{a.SellerID, a.WinningBidderID} {
			if err := svc.note(ctx, tx, out, user, domain.NotificationCollectionConfirmed, content, a.ID); err != nil {
				return err
			}
			out.send(user, events.CollectionConfirmed{AuctionID: a.ID, MotorcycleID: m.ID, SoldAt: now})
		}
		out.broadcast(statusChanged(a, m), "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("auction.confirm_collection", zap.String("auction_id", auctionID))
	return a, nil
}

// ArchiveNoSale withdraws an auction whose bid has not been accepted. Bids
// may exist.
func (svc *auctionService) ArchiveNoSale(ctx context.Context, auctionID, callerID string) (*domain.Auction, error) {
	a, err := svc.transition(ctx, "auction.archive_no_sale", auctionID, func(ctx context.Context, tx store.Tx, a *domain.Auction, out *outbox) error {
		if a.SellerID != callerID {
			return domain.ErrNotSeller
		}
		if a.BidAccepted {
			return domain.ErrAlreadyAccepted
		}
		if !a.Status.Open() {
			return domain.ErrAuctionClosed
		}
		a.Status = domain.AuctionNoSale
		a.WinningBidID = ""
		m, err := svc.save(ctx, tx, a, svc.now(), nil)
		if err != nil {
			return err
		}
		bids, err := tx.ListBids(ctx, a.ID)
		if err != nil {
			return err
		}
		for _, bidder := range ledger.Bidders(bids) {
			if err := svc.note(ctx, tx, out, bidder, domain.NotificationAuctionArchived,
				fmt.Sprintf("The auction for the %s was withdrawn without a sale", label(m)), a.ID); err != nil {
				return err
			}
		}
		out.broadcast(events.AuctionArchived{AuctionID: a.ID, MotorcycleID: m.ID}, "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("auction.archive_no_sale", zap.String("auction_id", auctionID))
	return a, nil
}

// DeleteAuction removes an auction nobody bid on together with its
// motorcycle. A motorcycle that earlier auctions still reference is kept
// and released instead.
func (svc *auctionService) DeleteAuction(ctx context.Context, auctionID, callerID string) error {
	_, err := svc.transition(ctx, "auction.delete", auctionID, func(ctx context.Context, tx store.Tx, a *domain.Auction, out *outbox) error {
		if a.SellerID != callerID {
			return domain.ErrNotSeller
		}
		bids, err := tx.ListBids(ctx, a.ID)
		if err != nil {
			return err
		}
		if len(bids) > 0 {
			return domain.ErrHasBids
		}
		if err := tx.DeleteAuction(ctx, a.ID); err != nil {
			return err
		}
		others, err := tx.ListAuctions(ctx, store.AuctionFilter{MotorcycleID: a.MotorcycleID})
		if err != nil {
			return err
		}
		if len(others) == 0 {
			if err := tx.DeleteMotorcycle(ctx, a.MotorcycleID); err != nil {
				return err
			}
		} else {
			m, err := tx.GetMotorcycle(ctx, a.MotorcycleID)
			if err != nil {
				return err
			}
			m.Status = heldStatus(others)
			m.UpdatedAt = svc.now()
			if err := tx.PutMotorcycle(ctx, m); err != nil {
				return err
			}
		}
		out.broadcast(events.AuctionDeleted{AuctionID: a.ID, MotorcycleID: a.MotorcycleID}, "")
		return nil
	})
	if err != nil {
		return err
	}
	zap.L().Info("auction.delete", zap.String("auction_id", auctionID))
	return nil
}

// Reset reopens an auction for another round. Existing bids are kept; a
// completed sale cannot be reset.
func (svc *auctionService) Reset(ctx context.Context, auctionID, callerID string, endTime time.Time) (*domain.Auction, error) {
	if !svc.allowReset {
		return nil, domain.ErrResetDisabled
	}
	if !endTime.After(svc.now()) {
		return nil, domain.ErrInvalidEndTime
	}
	endTime = endTime.UTC()
	a, err := svc.transition(ctx, "auction.reset", auctionID, func(ctx context.Context, tx store.Tx, a *domain.Auction, out *outbox) error {
		if a.SellerID != callerID {
			return domain.ErrNotSeller
		}
		if a.CollectionConfirmed {
			return domain.ErrMotorcycleSold
		}
		m, err := tx.GetMotorcycle(ctx, a.MotorcycleID)
		if err != nil {
			return err
		}
		if m.Status == domain.MotorcycleSold {
			return domain.ErrMotorcycleSold
		}
		open, err := tx.ListAuctions(ctx, store.AuctionFilter{
			MotorcycleID: a.MotorcycleID,
			Statuses:     []domain.AuctionStatus{domain.AuctionActive, domain.AuctionPendingCollection},
		})
		if err != nil {
			return err
		}
		for _, o := range open {
			if o.ID != a.ID {
				return domain.ErrMotorcycleBusy
			}
		}

		now := svc.now()
		a.Status = domain.AuctionActive
		a.EndTime = endTime
		a.WinningBidID = ""
		a.WinningBidderID = ""
		a.BidAccepted = false
		a.DealConfirmed = false
		a.CollectionDate = nil
		m, err = svc.save(ctx, tx, a, now, func(m *domain.Motorcycle) {
			m.SoldAt = nil
			m.AvailableFrom = nil
		})
		if err != nil {
			return err
		}
		out.broadcast(statusChanged(a, m), "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("auction.reset", zap.String("auction_id", auctionID), zap.Time("end_time", endTime))
	svc.arm(a)
	return a, nil
}
