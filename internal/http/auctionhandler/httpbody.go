package auctionhandler

import (
	"time"

	"motortrade/internal/domain"
)

type PlaceBidBody struct {
	AuctionID string `json:"auctionId" binding:"required"      example:"4f6c1f2e-5a0b-4d7e-9a55-1b2c3d4e5f60"`
	Amount    int64  `json:"amount"    binding:"required,gt=0" example:"7200"`
} // @name PlaceBidRequest

type AcceptBidBody struct {
	BidID            string     `json:"bidId"            binding:"required"`
	AvailabilityDate *time.Time `json:"availabilityDate" example:"2026-07-30T09:00:00Z"`
} // @name AcceptBidRequest

type ScheduleCollectionBody struct {
	CollectionDate time.Time `json:"collectionDate" binding:"required" example:"2026-07-30T09:00:00Z"`
} // @name ScheduleCollectionRequest

type ResetBody struct {
	EndTime time.Time `json:"endTime" binding:"required" example:"2026-07-30T09:00:00Z"`
} // @name ResetAuctionRequest

type ListAuctionsQuery struct {
	Status   string `form:"status"   binding:"omitempty,oneof=active pending_collection completed no_sale all"`
	SellerID string `form:"sellerId"`
} // @name ListAuctionsQuery

func (q ListAuctionsQuery) statuses() []domain.AuctionStatus {
	switch q.Status {
	case "":
		return nil
	case "all":
		return []domain.AuctionStatus{
			domain.AuctionActive,
			domain.AuctionPendingCollection,
			domain.AuctionCompleted,
			domain.AuctionNoSale,
		}
	}
	return []domain.AuctionStatus{domain.AuctionStatus(q.Status)}
}
