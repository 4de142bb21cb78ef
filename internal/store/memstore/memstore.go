// Package memstore is an in-process store.Store. Transactions are
// single-writer: Update holds the store write lock for the duration of the
// callback and only folds its overlay into the tables on success.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"motortrade/internal/domain"
	"motortrade/internal/store"
)

type tables struct {
	users         *table[domain.User]
	motorcycles   *table[domain.Motorcycle]
	auctions      *table[domain.Auction]
	bids          *table[domain.Bid]
	notifications *table[domain.Notification]
}

func (t tables) overlay() tables {
	return tables{
		users:         t.users.overlay(),
		motorcycles:   t.motorcycles.overlay(),
		auctions:      t.auctions.overlay(),
		bids:          t.bids.overlay(),
		notifications: t.notifications.overlay(),
	}
}

func (t tables) commit() {
	t.users.commit()
	t.motorcycles.commit()
	t.auctions.commit()
	t.bids.commit()
	t.notifications.commit()
}

type Store struct {
	mu   sync.RWMutex
	data tables
	seq  int64
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: tables{
		users:         newTable(cloneUser),
		motorcycles:   newTable(cloneMotorcycle),
		auctions:      newTable(cloneAuction),
		bids:          newTable(func(b domain.Bid) domain.Bid { return b }),
		notifications: newTable(func(n domain.Notification) domain.Notification { return n }),
	}}
}

func (s *Store) Close() error { return nil }

func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{view: view{data: s.data.overlay()}, seq: &s.seq}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.data.commit()
	return nil
}

func (s *Store) read() (view, func()) {
	s.mu.RLock()
	return view{data: s.data}, s.mu.RUnlock
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	v, done := s.read()
	defer done()
	return v.GetUser(ctx, id)
}

func (s *Store) GetMotorcycle(ctx context.Context, id string) (*domain.Motorcycle, error) {
	v, done := s.read()
	defer done()
	return v.GetMotorcycle(ctx, id)
}

func (s *Store) GetAuction(ctx context.Context, id string) (*domain.Auction, error) {
	v, done := s.read()
	defer done()
	return v.GetAuction(ctx, id)
}

func (s *Store) GetBid(ctx context.Context, id string) (*domain.Bid, error) {
	v, done := s.read()
	defer done()
	return v.GetBid(ctx, id)
}

func (s *Store) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	v, done := s.read()
	defer done()
	return v.GetNotification(ctx, id)
}

func (s *Store) ListAuctions(ctx context.Context, f store.AuctionFilter) ([]domain.Auction, error) {
	v, done := s.read()
	defer done()
	return v.ListAuctions(ctx, f)
}

func (s *Store) ListMotorcycles(ctx context.Context, f store.MotorcycleFilter) ([]domain.Motorcycle, error) {
	v, done := s.read()
	defer done()
	return v.ListMotorcycles(ctx, f)
}

func (s *Store) ListBids(ctx context.Context, auctionID string) ([]domain.Bid, error) {
	v, done := s.read()
	defer done()
	return v.ListBids(ctx, auctionID)
}

func (s *Store) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	v, done := s.read()
	defer done()
	return v.ListNotifications(ctx, userID)
}

// view implements store.Reader over a set of tables.
type view struct {
	data tables
}

func lookup[T any](ctx context.Context, t *table[T], kind, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := t.get(id)
	if !ok {
		return nil, domain.NotFoundf("%s %s", kind, id)
	}
	return &v, nil
}

func (v view) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return lookup(ctx, v.data.users, "user", id)
}

func (v view) GetMotorcycle(ctx context.Context, id string) (*domain.Motorcycle, error) {
	return lookup(ctx, v.data.motorcycles, "motorcycle", id)
}

func (v view) GetAuction(ctx context.Context, id string) (*domain.Auction, error) {
	return lookup(ctx, v.data.auctions, "auction", id)
}

func (v view) GetBid(ctx context.Context, id string) (*domain.Bid, error) {
	return lookup(ctx, v.data.bids, "bid", id)
}

func (v view) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	return lookup(ctx, v.data.notifications, "notification", id)
}

func (v view) ListAuctions(ctx context.Context, f store.AuctionFilter) ([]domain.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(v.data.auctions.all(), func(a domain.Auction) bool {
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
			return true
		}
		if f.SellerID != "" && a.SellerID != f.SellerID {
			return true
		}
		if f.MotorcycleID != "" && a.MotorcycleID != f.MotorcycleID {
			return true
		}
		if !f.EndsBefore.IsZero() && a.EndTime.After(f.EndsBefore) {
			return true
		}
		return false
	})
	slices.SortFunc(out, func(a, b domain.Auction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (v view) ListMotorcycles(ctx context.Context, f store.MotorcycleFilter) ([]domain.Motorcycle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(v.data.motorcycles.all(), func(m domain.Motorcycle) bool {
		return f.DealerID != "" && m.DealerID != f.DealerID
	})
	slices.SortFunc(out, func(a, b domain.Motorcycle) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (v view) ListBids(ctx context.Context, auctionID string) ([]domain.Bid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(v.data.bids.all(), func(b domain.Bid) bool {
		return b.AuctionID != auctionID
	})
	slices.SortFunc(out, func(a, b domain.Bid) int {
		if a.Before(&b) {
			return -1
		}
		if b.Before(&a) {
			return 1
		}
		return 0
	})
	return out, nil
}

func (v view) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(v.data.notifications.all(), func(n domain.Notification) bool {
		return n.UserID != userID
	})
	slices.SortFunc(out, func(a, b domain.Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

type tx struct {
	view
	seq *int64
}

// Plain reads the same overlay; the store-wide write lock already covers it.
func (t *tx) Plain() store.Reader { return t.view }

func (t *tx) PutUser(ctx context.Context, u *domain.User) error {
	t.data.users.put(u.ID, *u)
	return ctx.Err()
}

func (t *tx) PutMotorcycle(ctx context.Context, m *domain.Motorcycle) error {
	t.data.motorcycles.put(m.ID, *m)
	return ctx.Err()
}

func (t *tx) PutAuction(ctx context.Context, a *domain.Auction) error {
	t.data.auctions.put(a.ID, *a)
	return ctx.Err()
}

func (t *tx) PutBid(ctx context.Context, b *domain.Bid) error {
	*t.seq++
	b.Seq = *t.seq
	t.data.bids.put(b.ID, *b)
	return ctx.Err()
}

func (t *tx) PutNotification(ctx context.Context, n *domain.Notification) error {
	t.data.notifications.put(n.ID, *n)
	return ctx.Err()
}

func (t *tx) DeleteAuction(ctx context.Context, id string) error {
	t.data.auctions.del(id)
	return ctx.Err()
}

func (t *tx) DeleteMotorcycle(ctx context.Context, id string) error {
	t.data.motorcycles.del(id)
	return ctx.Err()
}

func cloneUser(u domain.User) domain.User {
	u.Favorites = slices.Clone(u.Favorites)
	u.Latitude = clonePtr(u.Latitude)
	u.Longitude = clonePtr(u.Longitude)
	return u
}

func cloneMotorcycle(m domain.Motorcycle) domain.Motorcycle {
	m.AvailableFrom = clonePtr(m.AvailableFrom)
	m.SoldAt = clonePtr(m.SoldAt)
	return m
}

func cloneAuction(a domain.Auction) domain.Auction {
	a.CollectionDate = clonePtr(a.CollectionDate)
	a.VisibilityRadius = clonePtr(a.VisibilityRadius)
	return a
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
