// Package pgstore implements store.Store on Postgres through sqlx and the
// pgx stdlib driver.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"motortrade/internal/domain"
	"motortrade/internal/store"
)

const (
	userCols         = `id, name, email, latitude, longitude, favorites, created_at`
	motorcycleCols   = `id, dealer_id, make, model, year, mileage, registration, description, status, available_from, sold_at, created_at, updated_at`
	auctionCols      = `id, motorcycle_id, seller_id, start_time, end_time, status, winning_bid_id, winning_bidder_id, bid_accepted, deal_confirmed, collection_confirmed, collection_date, visibility_type, visibility_radius, created_at, updated_at`
	bidCols          = `seq, id, auction_id, bidder_id, amount, created_at`
	notificationCols = `id, user_id, type, content, related_id, read, created_at`

	openAuctionIndex = "auctions_one_open_per_motorcycle"
)

type queryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

type Store struct {
	view
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	return &Store{view: view{q: db}, db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txView{view: view{q: tx, forUpdate: true}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type view struct {
	q         queryer
	forUpdate bool
}

func get[R any, T any](ctx context.Context, v view, kind, query, id string, conv func(R) *T) (*T, error) {
	var row R
	if err := v.q.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("%s %s", kind, id)
		}
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}
	return conv(row), nil
}

func (v view) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return get(ctx, v, "user", `SELECT `+userCols+` FROM users WHERE id = $1`, id, userRow.domain)
}

func (v view) GetMotorcycle(ctx context.Context, id string) (*domain.Motorcycle, error) {
	return get(ctx, v, "motorcycle", v.locking(`SELECT `+motorcycleCols+` FROM motorcycles WHERE id = $1`), id, motorcycleRow.domain)
}

func (v view) GetAuction(ctx context.Context, id string) (*domain.Auction, error) {
	return get(ctx, v, "auction", v.locking(`SELECT `+auctionCols+` FROM auctions WHERE id = $1`), id, auctionRow.domain)
}

// locking adds a row lock inside transactions. Transitions lock the auction
// before its motorcycle; nothing locks in the other order.
func (v view) locking(q string) string {
	if v.forUpdate {
		return q + ` FOR UPDATE`
	}
	return q
}

func (v view) GetBid(ctx context.Context, id string) (*domain.Bid, error) {
	return get(ctx, v, "bid", `SELECT `+bidCols+` FROM bids WHERE id = $1`, id, bidRow.domain)
}

func (v view) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	return get(ctx, v, "notification", v.locking(`SELECT `+notificationCols+` FROM notifications WHERE id = $1`), id, notificationRow.domain)
}

func (v view) ListAuctions(ctx context.Context, f store.AuctionFilter) ([]domain.Auction, error) {
	var (
		where []string
		args  []any
	)
	arg := func(a any) string {
		args = append(args, a)
		return fmt.Sprintf("$%d", len(args))
	}
	if len(f.Statuses) > 0 {
		st := make(pq.StringArray, len(f.Statuses))
		for i, s := range f.Statuses {
			st[i] = string(s)
		}
		where = append(where, "status = ANY("+arg(st)+")")
	}
	if f.SellerID != "" {
		where = append(where, "seller_id = "+arg(f.SellerID))
	}
	if f.MotorcycleID != "" {
		where = append(where, "motorcycle_id = "+arg(f.MotorcycleID))
	}
	if !f.EndsBefore.IsZero() {
		where = append(where, "end_time <= "+arg(f.EndsBefore))
	}

	q := `SELECT ` + auctionCols + ` FROM auctions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id`

	var rows []auctionRow
	if err := v.q.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	return mapRows(rows, auctionRow.domain), nil
}

func (v view) ListMotorcycles(ctx context.Context, f store.MotorcycleFilter) ([]domain.Motorcycle, error) {
	q := `SELECT ` + motorcycleCols + ` FROM motorcycles`
	var args []any
	if f.DealerID != "" {
		q += ` WHERE dealer_id = $1`
		args = append(args, f.DealerID)
	}
	q += ` ORDER BY created_at DESC, id`

	var rows []motorcycleRow
	if err := v.q.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list motorcycles: %w", err)
	}
	return mapRows(rows, motorcycleRow.domain), nil
}

func (v view) ListBids(ctx context.Context, auctionID string) ([]domain.Bid, error) {
	var rows []bidRow
	err := v.q.SelectContext(ctx, &rows,
		`SELECT `+bidCols+` FROM bids WHERE auction_id = $1 ORDER BY created_at, seq`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	return mapRows(rows, bidRow.domain), nil
}

func (v view) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	var rows []notificationRow
	err := v.q.SelectContext(ctx, &rows,
		`SELECT `+notificationCols+` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return mapRows(rows, notificationRow.domain), nil
}

type txView struct {
	view
}

func (t *txView) Plain() store.Reader { return view{q: t.q} }

const upsertUser = `
	INSERT INTO users (` + userCols + `)
	     VALUES (:id, :name, :email, :latitude, :longitude, :favorites, :created_at)
	ON CONFLICT (id) DO UPDATE
	        SET name = EXCLUDED.name,
	            email = EXCLUDED.email,
	            latitude = EXCLUDED.latitude,
	            longitude = EXCLUDED.longitude,
	            favorites = EXCLUDED.favorites`

func (t *txView) PutUser(ctx context.Context, u *domain.User) error {
	if _, err := t.q.NamedExecContext(ctx, upsertUser, fromUser(u)); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

const upsertMotorcycle = `
	INSERT INTO motorcycles (` + motorcycleCols + `)
	     VALUES (:id, :dealer_id, :make, :model, :year, :mileage, :registration, :description,
	             :status, :available_from, :sold_at, :created_at, :updated_at)
	ON CONFLICT (id) DO UPDATE
	        SET make = EXCLUDED.make,
	            model = EXCLUDED.model,
	            year = EXCLUDED.year,
	            mileage = EXCLUDED.mileage,
	            registration = EXCLUDED.registration,
	            description = EXCLUDED.description,
	            status = EXCLUDED.status,
	            available_from = EXCLUDED.available_from,
	            sold_at = EXCLUDED.sold_at,
	            updated_at = EXCLUDED.updated_at`

func (t *txView) PutMotorcycle(ctx context.Context, m *domain.Motorcycle) error {
	if _, err := t.q.NamedExecContext(ctx, upsertMotorcycle, motorcycleRow(*m)); err != nil {
		return fmt.Errorf("put motorcycle: %w", err)
	}
	return nil
}

const upsertAuction = `
	INSERT INTO auctions (` + auctionCols + `)
	     VALUES (:id, :motorcycle_id, :seller_id, :start_time, :end_time, :status,
	             :winning_bid_id, :winning_bidder_id, :bid_accepted, :deal_confirmed,
	             :collection_confirmed, :collection_date, :visibility_type, :visibility_radius,
	             :created_at, :updated_at)
	ON CONFLICT (id) DO UPDATE
	        SET end_time = EXCLUDED.end_time,
	            status = EXCLUDED.status,
	            winning_bid_id = EXCLUDED.winning_bid_id,
	            winning_bidder_id = EXCLUDED.winning_bidder_id,
	            bid_accepted = EXCLUDED.bid_accepted,
	            deal_confirmed = EXCLUDED.deal_confirmed,
	            collection_confirmed = EXCLUDED.collection_confirmed,
	            collection_date = EXCLUDED.collection_date,
	            visibility_type = EXCLUDED.visibility_type,
	            visibility_radius = EXCLUDED.visibility_radius,
	            updated_at = EXCLUDED.updated_at`

func (t *txView) PutAuction(ctx context.Context, a *domain.Auction) error {
	if _, err := t.q.NamedExecContext(ctx, upsertAuction, auctionRow(*a)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == openAuctionIndex {
			return domain.ErrMotorcycleBusy
		}
		return fmt.Errorf("put auction: %w", err)
	}
	return nil
}

func (t *txView) PutBid(ctx context.Context, b *domain.Bid) error {
	const ins = `
	  INSERT INTO bids (id, auction_id, bidder_id, amount, created_at)
	       VALUES ($1, $2, $3, $4, $5)
	    RETURNING seq`
	if err := t.q.GetContext(ctx, &b.Seq, ins, b.ID, b.AuctionID, b.BidderID, b.Amount, b.CreatedAt); err != nil {
		return fmt.Errorf("put bid: %w", err)
	}
	return nil
}

const upsertNotification = `
	INSERT INTO notifications (` + notificationCols + `)
	     VALUES (:id, :user_id, :type, :content, :related_id, :read, :created_at)
	ON CONFLICT (id) DO UPDATE
	        SET read = EXCLUDED.read`

func (t *txView) PutNotification(ctx context.Context, n *domain.Notification) error {
	if _, err := t.q.NamedExecContext(ctx, upsertNotification, notificationRow(*n)); err != nil {
		return fmt.Errorf("put notification: %w", err)
	}
	return nil
}

func (t *txView) DeleteAuction(ctx context.Context, id string) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM auctions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete auction: %w", err)
	}
	return nil
}

func (t *txView) DeleteMotorcycle(ctx context.Context, id string) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM motorcycles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete motorcycle: %w", err)
	}
	return nil
}
