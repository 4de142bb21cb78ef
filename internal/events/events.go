// Package events is the closed set of messages pushed to connected dealers
// after a committed transition, plus the wire envelope they travel in.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"motortrade/internal/domain"
)

type Type string

const (
	TypeNewBid               Type = "new_bid"
	TypeBidAccepted          Type = "bid_accepted"
	TypeBidAcceptedConfirm   Type = "bid_accepted_confirm"
	TypeDealConfirmed        Type = "deal_confirmed"
	TypeCollectionScheduled  Type = "collection_scheduled"
	TypeCollectionConfirmed  Type = "collection_confirmed"
	TypeAuctionStatusChanged Type = "auction_status_changed"
	TypeAuctionCreated       Type = "auction_created"
	TypeAuctionDeleted       Type = "auction_deleted"
	TypeAuctionArchived      Type = "auction_archived"
)

// Event is implemented only by the payload structs in this file.
type Event interface {
	Type() Type
	sealed()
}

// NewBid goes to the seller only.
type NewBid struct {
	AuctionID string    `json:"auctionId"`
	BidID     string    `json:"bidId"`
	BidderID  string    `json:"bidderId"`
	Amount    int64     `json:"amount"`
	BidCount  int       `json:"bidCount"`
	PlacedAt  time.Time `json:"placedAt"`
}

// BidAccepted goes to the winning bidder.
type BidAccepted struct {
	AuctionID        string     `json:"auctionId"`
	BidID            string     `json:"bidId"`
	Amount           int64      `json:"amount"`
	MotorcycleID     string     `json:"motorcycleId"`
	AvailabilityDate *time.Time `json:"availabilityDate,omitempty"`
}

// BidAcceptedConfirm echoes the acceptance back to the seller.
type BidAcceptedConfirm struct {
	AuctionID string `json:"auctionId"`
	BidID     string `json:"bidId"`
	WinnerID  string `json:"winnerId"`
	Amount    int64  `json:"amount"`
}

type DealConfirmed struct {
	AuctionID string `json:"auctionId"`
	BuyerID   string `json:"buyerId"`
}

type CollectionScheduled struct {
	AuctionID      string    `json:"auctionId"`
	CollectionDate time.Time `json:"collectionDate"`
}

type CollectionConfirmed struct {
	AuctionID    string    `json:"auctionId"`
	MotorcycleID string    `json:"motorcycleId"`
	SoldAt       time.Time `json:"soldAt"`
}

// AuctionStatusChanged is broadcast; it never carries amounts.
type AuctionStatusChanged struct {
	AuctionID        string                  `json:"auctionId"`
	Status           domain.AuctionStatus    `json:"status"`
	MotorcycleID     string                  `json:"motorcycleId"`
	MotorcycleStatus domain.MotorcycleStatus `json:"motorcycleStatus"`
}

// AuctionCreated is broadcast with identifiers only; clients re-list through
// the visibility-filtered endpoint.
type AuctionCreated struct {
	AuctionID string    `json:"auctionId"`
	SellerID  string    `json:"sellerId"`
	EndTime   time.Time `json:"endTime"`
}

type AuctionDeleted struct {
	AuctionID    string `json:"auctionId"`
	MotorcycleID string `json:"motorcycleId"`
}

type AuctionArchived struct {
	AuctionID    string `json:"auctionId"`
	MotorcycleID string `json:"motorcycleId"`
}

func (NewBid) Type() Type               { return TypeNewBid }
func (BidAccepted) Type() Type          { return TypeBidAccepted }
func (BidAcceptedConfirm) Type() Type   { return TypeBidAcceptedConfirm }
func (DealConfirmed) Type() Type        { return TypeDealConfirmed }
func (CollectionScheduled) Type() Type  { return TypeCollectionScheduled }
func (CollectionConfirmed) Type() Type  { return TypeCollectionConfirmed }
func (AuctionStatusChanged) Type() Type { return TypeAuctionStatusChanged }
func (AuctionCreated) Type() Type       { return TypeAuctionCreated }
func (AuctionDeleted) Type() Type       { return TypeAuctionDeleted }
func (AuctionArchived) Type() Type      { return TypeAuctionArchived }

func (NewBid) sealed()               {}
func (BidAccepted) sealed()          {}
func (BidAcceptedConfirm) sealed()   {}
func (DealConfirmed) sealed()        {}
func (CollectionScheduled) sealed()  {}
func (CollectionConfirmed) sealed()  {}
func (AuctionStatusChanged) sealed() {}
func (AuctionCreated) sealed()       {}
func (AuctionDeleted) sealed()       {}
func (AuctionArchived) sealed()      {}

// Envelope wraps every frame in both directions.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Encode renders evt as a wire frame.
func Encode(evt Event, at time.Time) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", evt.Type(), err)
	}
	return json.Marshal(Envelope{Type: string(evt.Type()), Data: data, Timestamp: at.UTC()})
}

// Decode parses a server frame back into its typed payload. Unknown types
// return ok == false and no error so callers can skip them.
func Decode(frame []byte) (evt Event, ok bool, err error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, false, err
	}
	var target Event
	switch Type(env.Type) {
	case TypeNewBid:
		target = &NewBid{}
	case TypeBidAccepted:
		target = &BidAccepted{}
	case TypeBidAcceptedConfirm:
		target = &BidAcceptedConfirm{}
	case TypeDealConfirmed:
		target = &DealConfirmed{}
	case TypeCollectionScheduled:
		target = &CollectionScheduled{}
	case TypeCollectionConfirmed:
		target = &CollectionConfirmed{}
	case TypeAuctionStatusChanged:
		target = &AuctionStatusChanged{}
	case TypeAuctionCreated:
		target = &AuctionCreated{}
	case TypeAuctionDeleted:
		target = &AuctionDeleted{}
	case TypeAuctionArchived:
		target = &AuctionArchived{}
	default:
		return nil, false, nil
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return nil, false, err
		}
	}
	return target, true, nil
}

// Dispatcher delivers events to connected dealers. Delivery is best effort;
// implementations must not block on slow or dead connections.
type Dispatcher interface {
	SendToUser(userID string, evt Event)
	// Broadcast reaches every open connection except excludeUserID's.
	Broadcast(evt Event, excludeUserID string)
}

// Discard drops every event.
type Discard struct{}

func (Discard) SendToUser(string, Event) {}
func (Discard) Broadcast(Event, string)  {}
