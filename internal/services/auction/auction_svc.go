package auction

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"motortrade/internal/domain"
	"motortrade/internal/events"
	"motortrade/internal/lock"
	"motortrade/internal/services/ledger"
	"motortrade/internal/services/notification"
	"motortrade/internal/services/visibility"
	"motortrade/internal/store"
)

// AuctionDetail is the single-auction view. Amounts are only filled for the
// seller; a bidder sees their own best offer and nothing else.
type AuctionDetail struct {
	domain.Auction
	Motorcycle   *domain.Motorcycle `json:"motorcycle"`
	BidCount     int                `json:"bidCount"`
	HighestBid   *int64             `json:"highestBid,omitempty"`
	MyHighestBid *int64             `json:"myHighestBid,omitempty"`
	Bids         []domain.Bid       `json:"bids,omitempty"`
}

type CreateAuctionInput struct {
	MotorcycleID     string                `json:"motorcycleId"     binding:"required"`
	StartTime        *time.Time            `json:"startTime"        example:"2026-07-27T16:05:05Z"`
	EndTime          time.Time             `json:"endTime"          binding:"required" example:"2026-07-28T16:05:05Z"`
	VisibilityType   domain.VisibilityType `json:"visibilityType"   example:"all"`
	VisibilityRadius *int                  `json:"visibilityRadius" example:"50"`
}

type ListQuery struct {
	// Statuses defaults to active only.
	Statuses []domain.AuctionStatus
	SellerID string
}

// Scheduler arms a wake-up for an auction's end time. Missing a wake-up is
// safe: the periodic sweep expires the auction anyway.
type Scheduler interface {
	Arm(ctx context.Context, auctionID string, at time.Time) error
}

type NoopScheduler struct{}

func (NoopScheduler) Arm(context.Context, string, time.Time) error { return nil }

type Options struct {
	// MinIncrement in whole units; 0 accepts any positive bid.
	MinIncrement            int64
	RequireDealConfirmation bool
	AllowReset              bool
	StoreTimeout            time.Duration
	Now                     func() time.Time
}

type IAuctionService interface {
	CreateAuction(ctx context.Context, sellerID string, in CreateAuctionInput) (*domain.Auction, error)
	ListAuctions(ctx context.Context, viewerID string, q ListQuery) ([]domain.Auction, error)
	GetAuction(ctx context.Context, id, viewerID string) (*AuctionDetail, error)
	HighestBid(ctx context.Context, auctionID string) (*domain.Bid, error)
	BidsForAuction(ctx context.Context, auctionID, callerID string) ([]domain.Bid, error)

	PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (*domain.Bid, error)
	EndEarly(ctx context.Context, auctionID, callerID string) (*domain.Auction, error)
	Expire(ctx context.Context, auctionID string) error
	ExpireDue(ctx context.Context) (int, error)
	AcceptBid(ctx context.Context, auctionID, callerID, bidID string, availableFrom *time.Time) (*domain.Auction, error)
	ConfirmDeal(ctx context.Context, auctionID, callerID string) (*domain.Auction, error)
	ScheduleCollection(ctx context.Context, auctionID, callerID string, date time.Time) (*domain.Auction, error)
	ConfirmCollection(ctx context.Context, auctionID, callerID string) (*domain.Auction, error)
	ArchiveNoSale(ctx context.Context, auctionID, callerID string) (*domain.Auction, error)
	DeleteAuction(ctx context.Context, auctionID, callerID string) error
	Reset(ctx context.Context, auctionID, callerID string, endTime time.Time) (*domain.Auction, error)
}

type auctionService struct {
	store     store.Store
	locker    lock.Locker
	ledger    *ledger.Ledger
	notes     *notification.Recorder
	dispatch  events.Dispatcher
	scheduler Scheduler

	requireDeal  bool
	allowReset   bool
	storeTimeout time.Duration
	now          func() time.Time
}

var _ IAuctionService = (*auctionService)(nil)

func NewAuctionService(
	st store.Store,
	locker lock.Locker,
	notes *notification.Recorder,
	dispatch events.Dispatcher,
	scheduler Scheduler,
	opts Options,
) IAuctionService {
	if dispatch == nil {
		dispatch = events.Discard{}
	}
	if scheduler == nil {
		scheduler = NoopScheduler{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	return &auctionService{
		store:        st,
		locker:       locker,
		ledger:       ledger.New(st, opts.MinIncrement),
		notes:        notes,
		dispatch:     dispatch,
		scheduler:    scheduler,
		requireDeal:  opts.RequireDealConfirmation,
		allowReset:   opts.AllowReset,
		storeTimeout: opts.StoreTimeout,
		now:          func() time.Time { return opts.Now().UTC() },
	}
}

func (svc *auctionService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, svc.storeTimeout)
}

// CreateAuction opens an auction over a motorcycle the seller owns. Only one
// open auction per motorcycle may exist.
func (svc *auctionService) CreateAuction(ctx context.Context, sellerID string, in CreateAuctionInput) (*domain.Auction, error) {
	now := svc.now()
	if in.MotorcycleID == "" {
		return nil, domain.Validationf("motorcycleId is required")
	}
	if !in.EndTime.After(now) {
		return nil, domain.ErrInvalidEndTime
	}
	if in.VisibilityType == "" {
		in.VisibilityType = domain.VisibilityAll
	}
	if !in.VisibilityType.Valid() {
		return nil, domain.ErrInvalidVisibility
	}
	if in.VisibilityType == domain.VisibilityRadius && (in.VisibilityRadius == nil || *in.VisibilityRadius <= 0) {
		return nil, domain.Validationf("visibilityRadius must be positive for radius auctions")
	}
	if in.VisibilityType != domain.VisibilityRadius {
		in.VisibilityRadius = nil
	}
	start := now
	if in.StartTime != nil {
		start = in.StartTime.UTC()
	}
	if !in.EndTime.After(start) {
		return nil, domain.ErrInvalidEndTime
	}

	ctx, cancel := svc.bounded(ctx)
	defer cancel()

	unlock, err := svc.locker.Lock(ctx, motorcycleKey(in.MotorcycleID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	a := &domain.Auction{
		ID:               uuid.NewString(),
		MotorcycleID:     in.MotorcycleID,
		SellerID:         sellerID,
		StartTime:        start,
		EndTime:          in.EndTime.UTC(),
		Status:           domain.AuctionActive,
		VisibilityType:   in.VisibilityType,
		VisibilityRadius: in.VisibilityRadius,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err = svc.store.Update(ctx, func(tx store.Tx) error {
		m, err := tx.GetMotorcycle(ctx, in.MotorcycleID)
		if err != nil {
			return err
		}
		if m.DealerID != sellerID {
			return domain.ErrNotOwner
		}
		if m.Status == domain.MotorcycleSold {
			return domain.ErrMotorcycleSold
		}
		open, err := tx.ListAuctions(ctx, store.AuctionFilter{
			MotorcycleID: m.ID,
			Statuses:     []domain.AuctionStatus{domain.AuctionActive, domain.AuctionPendingCollection},
		})
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return domain.ErrMotorcycleBusy
		}
		if err := tx.PutAuction(ctx, a); err != nil {
			return err
		}
		m.Status = domain.MotorcycleStatusFor(a)
		m.UpdatedAt = now
		return tx.PutMotorcycle(ctx, m)
	})
	if err != nil {
		return nil, svc.fail("auction.create", a.ID, err)
	}

	zap.L().Info("auction.create",
		zap.String("auction_id", a.ID),
		zap.String("motorcycle_id", a.MotorcycleID),
		zap.String("seller_id", sellerID),
		zap.Time("end_time", a.EndTime))

	svc.arm(a)
	svc.dispatch.Broadcast(events.AuctionCreated{AuctionID: a.ID, SellerID: sellerID, EndTime: a.EndTime}, "")
	return a, nil
}

// ListAuctions returns the auctions viewerID may see; anonymous callers pass
// an empty id.
func (svc *auctionService) ListAuctions(ctx context.Context, viewerID string, q ListQuery) ([]domain.Auction, error) {
	ctx, cancel := svc.bounded(ctx)
	defer cancel()

	statuses := q.Statuses
	if len(statuses) == 0 {
		statuses = []domain.AuctionStatus{domain.AuctionActive}
	}
	list, err := svc.store.ListAuctions(ctx, store.AuctionFilter{Statuses: statuses, SellerID: q.SellerID})
	if err != nil {
		return nil, err
	}
	viewer, err := lookupViewer(ctx, svc.store, viewerID)
	if err != nil {
		return nil, err
	}
	return visibility.NewResolver(svc.store).Filter(ctx, list, viewer), nil
}

// GetAuction hides auctions the caller may not see behind NotFound. Dealers
// who already bid keep access even if the audience later narrows.
func (svc *auctionService) GetAuction(ctx context.Context, id, viewerID string) (*AuctionDetail, error) {
	ctx, cancel := svc.bounded(ctx)
	defer cancel()

	a, err := svc.store.GetAuction(ctx, id)
	if err != nil {
		return nil, err
	}
	bids, err := svc.store.ListBids(ctx, id)
	if err != nil {
		return nil, err
	}
	viewer, err := lookupViewer(ctx, svc.store, viewerID)
	if err != nil {
		return nil, err
	}
	participant := viewerID != "" && slices.ContainsFunc(bids, func(b domain.Bid) bool { return b.BidderID == viewerID })
	if !participant && !visibility.NewResolver(svc.store).IsVisible(ctx, a, viewer) {
		return nil, domain.NotFoundf("auction %s", id)
	}
	m, err := svc.store.GetMotorcycle(ctx, a.MotorcycleID)
	if err != nil {
		return nil, err
	}

	d := &AuctionDetail{Auction: *a, Motorcycle: m, BidCount: len(bids)}
	switch {
	case viewerID == a.SellerID:
		if top := ledger.Highest(bids); top != nil {
			d.HighestBid = &top.Amount
		}
		d.Bids = ledger.ByAmount(bids)
	case participant:
		var mine []domain.Bid
		for _, b := range bids {
			if b.BidderID == viewerID {
				mine = append(mine, b)
			}
		}
		if top := ledger.Highest(mine); top != nil {
			d.MyHighestBid = &top.Amount
		}
	}
	return d, nil
}

func (svc *auctionService) HighestBid(ctx context.Context, auctionID string) (*domain.Bid, error) {
	ctx, cancel := svc.bounded(ctx)
	defer cancel()
	return svc.ledger.HighestBid(ctx, auctionID)
}

// BidsForAuction answers NotFound to callers who cannot see the auction and
// Unauthorized to everyone but the seller.
func (svc *auctionService) BidsForAuction(ctx context.Context, auctionID, callerID string) ([]domain.Bid, error) {
	ctx, cancel := svc.bounded(ctx)
	defer cancel()

	a, err := svc.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.SellerID != callerID {
		viewer, err := lookupViewer(ctx, svc.store, callerID)
		if err != nil {
			return nil, err
		}
		if !visibility.NewResolver(svc.store).IsVisible(ctx, a, viewer) {
			return nil, domain.NotFoundf("auction %s", auctionID)
		}
	}
	return svc.ledger.BidsForAuction(ctx, auctionID, callerID)
}

// lookupViewer resolves a caller id to a profile. Authenticated dealers
// without a stored profile get an empty one.
func lookupViewer(ctx context.Context, r store.Reader, id string) (*domain.User, error) {
	if id == "" {
		return nil, nil
	}
	u, err := r.GetUser(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.User{ID: id}, nil
	}
	return u, err
}

func (svc *auctionService) arm(a *domain.Auction) {
	ctx, cancel := context.WithTimeout(context.Background(), svc.storeTimeout)
	defer cancel()
	if err := svc.scheduler.Arm(ctx, a.ID, a.EndTime); err != nil {
		zap.L().Warn("auction.arm_timer", zap.String("auction_id", a.ID), zap.Error(err))
	}
}

// fail logs infrastructure errors. Domain errors are the caller's business
// and go back untouched.
func (svc *auctionService) fail(op, auctionID string, err error) error {
	for _, kind := range []error{domain.ErrNotFound, domain.ErrUnauthorized, domain.ErrInvalidState, domain.ErrValidation} {
		if errors.Is(err, kind) {
			return err
		}
	}
	zap.L().Error(op, zap.String("auction_id", auctionID), zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

func auctionKey(id string) string    { return "auction:" + id }
func motorcycleKey(id string) string { return "motorcycle:" + id }

func label(m *domain.Motorcycle) string {
	if m == nil {
		return "motorcycle"
	}
	if m.Year > 0 {
		return fmt.Sprintf("%d %s %s", m.Year, m.Make, m.Model)
	}
	return m.Make + " " + m.Model
}
