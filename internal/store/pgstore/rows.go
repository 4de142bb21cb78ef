package pgstore

import (
	"time"

	"github.com/lib/pq"

	"motortrade/internal/domain"
)

type userRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Email     string         `db:"email"`
	Latitude  *float64       `db:"latitude"`
	Longitude *float64       `db:"longitude"`
	Favorites pq.StringArray `db:"favorites"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r userRow) domain() *domain.User {
	return &domain.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Favorites: []string(r.Favorites),
		CreatedAt: r.CreatedAt,
	}
}

func fromUser(u *domain.User) userRow {
	fav := pq.StringArray(u.Favorites)
	if fav == nil {
		fav = pq.StringArray{}
	}
	return userRow{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Latitude:  u.Latitude,
		Longitude: u.Longitude,
		Favorites: fav,
		CreatedAt: u.CreatedAt,
	}
}

type motorcycleRow struct {
	ID            string                  `db:"id"`
	DealerID      string                  `db:"dealer_id"`
	Make          string                  `db:"make"`
	Model         string                  `db:"model"`
	Year          int                     `db:"year"`
	Mileage       int                     `db:"mileage"`
	Registration  string                  `db:"registration"`
	Description   string                  `db:"description"`
	Status        domain.MotorcycleStatus `db:"status"`
	AvailableFrom *time.Time              `db:"available_from"`
	SoldAt        *time.Time              `db:"sold_at"`
	CreatedAt     time.Time               `db:"created_at"`
	UpdatedAt     time.Time               `db:"updated_at"`
}

func (r motorcycleRow) domain() *domain.Motorcycle {
	m := domain.Motorcycle(r)
	return &m
}

type auctionRow struct {
	ID                  string                `db:"id"`
	MotorcycleID        string                `db:"motorcycle_id"`
	SellerID            string                `db:"seller_id"`
	StartTime           time.Time             `db:"start_time"`
	EndTime             time.Time             `db:"end_time"`
	Status              domain.AuctionStatus  `db:"status"`
	WinningBidID        string                `db:"winning_bid_id"`
	WinningBidderID     string                `db:"winning_bidder_id"`
	BidAccepted         bool                  `db:"bid_accepted"`
	DealConfirmed       bool                  `db:"deal_confirmed"`
	CollectionConfirmed bool                  `db:"collection_confirmed"`
	CollectionDate      *time.Time            `db:"collection_date"`
	VisibilityType      domain.VisibilityType `db:"visibility_type"`
	VisibilityRadius    *int                  `db:"visibility_radius"`
	CreatedAt           time.Time             `db:"created_at"`
	UpdatedAt           time.Time             `db:"updated_at"`
}

func (r auctionRow) domain() *domain.Auction {
	a := domain.Auction(r)
	return &a
}

type bidRow struct {
	Seq       int64     `db:"seq"`
	ID        string    `db:"id"`
	AuctionID string    `db:"auction_id"`
	BidderID  string    `db:"bidder_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

func (r bidRow) domain() *domain.Bid {
	return &domain.Bid{
		ID:        r.ID,
		AuctionID: r.AuctionID,
		BidderID:  r.BidderID,
		Amount:    r.Amount,
		CreatedAt: r.CreatedAt,
		Seq:       r.Seq,
	}
}

type notificationRow struct {
	ID        string                  `db:"id"`
	UserID    string                  `db:"user_id"`
	Type      domain.NotificationType `db:"type"`
	Content   string                  `db:"content"`
	RelatedID string                  `db:"related_id"`
	Read      bool                    `db:"read"`
	CreatedAt time.Time               `db:"created_at"`
}

func (r notificationRow) domain() *domain.Notification {
	n := domain.Notification(r)
	return &n
}

func mapRows[R any, T any](rows []R, conv func(R) *T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, *conv(r))
	}
	return out
}
