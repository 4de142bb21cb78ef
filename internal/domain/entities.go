package domain

import (
	"slices"
	"time"
)

type MotorcycleStatus string

const (
	MotorcycleAvailable         MotorcycleStatus = "available"
	MotorcyclePendingCollection MotorcycleStatus = "pending_collection"
	MotorcycleSold              MotorcycleStatus = "sold"
)

type AuctionStatus string

const (
	AuctionActive            AuctionStatus = "active"
	AuctionPendingCollection AuctionStatus = "pending_collection"
	AuctionCompleted         AuctionStatus = "completed"
	AuctionNoSale            AuctionStatus = "no_sale"
)

// Open reports whether the auction still holds its motorcycle.
func (s AuctionStatus) Open() bool {
	return s == AuctionActive || s == AuctionPendingCollection
}

// Terminal reports whether no further transition is possible.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionCompleted || s == AuctionNoSale
}

type VisibilityType string

const (
	VisibilityAll       VisibilityType = "all"
	VisibilityFavorites VisibilityType = "favorites"
	VisibilityRadius    VisibilityType = "radius"
)

func (v VisibilityType) Valid() bool {
	switch v {
	case VisibilityAll, VisibilityFavorites, VisibilityRadius:
		return true
	}
	return false
}

// User is a dealer account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Favorites []string  `json:"favorites"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasFavorite reports whether dealerID is in the user's favorite-dealers set.
func (u *User) HasFavorite(dealerID string) bool {
	return slices.Contains(u.Favorites, dealerID)
}

type Motorcycle struct {
	ID            string           `json:"id"`
	DealerID      string           `json:"dealerId"`
	Make          string           `json:"make"`
	Model         string           `json:"model"`
	Year          int              `json:"year"`
	Mileage       int              `json:"mileage"`
	Registration  string           `json:"registration,omitempty"`
	Description   string           `json:"description,omitempty"`
	Status        MotorcycleStatus `json:"status"`
	AvailableFrom *time.Time       `json:"availableFrom,omitempty"`
	SoldAt        *time.Time       `json:"soldAt,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

type Auction struct {
	ID                  string         `json:"id"`
	MotorcycleID        string         `json:"motorcycleId"`
	SellerID            string         `json:"sellerId"`
	StartTime           time.Time      `json:"startTime"`
	EndTime             time.Time      `json:"endTime"`
	Status              AuctionStatus  `json:"status"`
	WinningBidID        string         `json:"winningBidId,omitempty"`
	WinningBidderID     string         `json:"winningBidderId,omitempty"`
	BidAccepted         bool           `json:"bidAccepted"`
	DealConfirmed       bool           `json:"dealConfirmed"`
	CollectionConfirmed bool           `json:"collectionConfirmed"`
	CollectionDate      *time.Time     `json:"collectionDate,omitempty"`
	VisibilityType      VisibilityType `json:"visibilityType"`
	VisibilityRadius    *int           `json:"visibilityRadius,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

// MotorcycleStatusFor is the only place the motorcycle status is computed.
// The motorcycle row is a shadow of its open (or last closed) auction.
func MotorcycleStatusFor(a *Auction) MotorcycleStatus {
	switch a.Status {
	case AuctionPendingCollection:
		return MotorcyclePendingCollection
	case AuctionCompleted:
		if a.CollectionConfirmed {
			return MotorcycleSold
		}
		return MotorcycleAvailable
	default:
		return MotorcycleAvailable
	}
}

// Bid is immutable once stored. Seq breaks ties between bids that share
// a CreatedAt value.
type Bid struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auctionId"`
	BidderID  string    `json:"bidderId"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
	Seq       int64     `json:"-"`
}

// Before reports whether b was placed before o.
func (b *Bid) Before(o *Bid) bool {
	if !b.CreatedAt.Equal(o.CreatedAt) {
		return b.CreatedAt.Before(o.CreatedAt)
	}
	return b.Seq < o.Seq
}

type NotificationType string

const (
	NotificationNewBid              NotificationType = "new_bid"
	NotificationAuctionEnded        NotificationType = "auction_ended"
	NotificationBidAccepted         NotificationType = "bid_accepted"
	NotificationDealConfirmed       NotificationType = "deal_confirmed"
	NotificationCollectionScheduled NotificationType = "collection_scheduled"
	NotificationCollectionConfirmed NotificationType = "collection_confirmed"
	NotificationAuctionArchived     NotificationType = "auction_archived"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Content   string           `json:"content"`
	RelatedID string           `json:"relatedId,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}
