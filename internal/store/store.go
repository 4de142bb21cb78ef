// Package store defines the entity repository used by the services.
// Implementations hold no business rules; cross-entity atomicity is provided
// through Update, which runs a callback inside a single transaction.
package store

import (
	"context"
	"time"

	"motortrade/internal/domain"
)

type AuctionFilter struct {
	Statuses     []domain.AuctionStatus
	SellerID     string
	MotorcycleID string
	// EndsBefore, when set, keeps auctions whose EndTime is not after it.
	EndsBefore time.Time
}

type MotorcycleFilter struct {
	DealerID string
}

// Reader is the read half of the store. Get* return domain.ErrNotFound
// when the entity does not exist.
type Reader interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetMotorcycle(ctx context.Context, id string) (*domain.Motorcycle, error)
	GetAuction(ctx context.Context, id string) (*domain.Auction, error)
	GetBid(ctx context.Context, id string) (*domain.Bid, error)
	GetNotification(ctx context.Context, id string) (*domain.Notification, error)

	ListAuctions(ctx context.Context, f AuctionFilter) ([]domain.Auction, error)
	ListMotorcycles(ctx context.Context, f MotorcycleFilter) ([]domain.Motorcycle, error)
	// ListBids returns the auction's bids in placement order.
	ListBids(ctx context.Context, auctionID string) ([]domain.Bid, error)
	// ListNotifications returns the user's notifications newest first.
	ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
}

// Writer puts are last-writer-wins on a single entity.
type Writer interface {
	PutUser(ctx context.Context, u *domain.User) error
	PutMotorcycle(ctx context.Context, m *domain.Motorcycle) error
	PutAuction(ctx context.Context, a *domain.Auction) error
	// PutBid appends a bid and assigns its Seq.
	PutBid(ctx context.Context, b *domain.Bid) error
	PutNotification(ctx context.Context, n *domain.Notification) error
	DeleteAuction(ctx context.Context, id string) error
	DeleteMotorcycle(ctx context.Context, id string) error
}

// Tx is a transactional view. Inside a Tx, GetAuction, GetMotorcycle and
// GetNotification lock the row until the transaction ends.
type Tx interface {
	Reader
	Writer
	// Plain reads within the same transaction without taking row locks.
	Plain() Reader
}

type Store interface {
	Reader
	// Update runs fn in one transaction. If fn returns an error nothing
	// it wrote is kept.
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
