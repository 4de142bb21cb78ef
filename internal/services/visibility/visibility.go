package visibility

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"motortrade/internal/domain"
	"motortrade/internal/store"
)

// OpenRadius is the radius (miles) above which a radius-scoped auction is
// treated as nationwide.
const OpenRadius = 100

const earthRadiusMiles = 3958.8

// Visible decides whether viewer may see a. viewer is nil for anonymous
// callers; seller may be nil when the seller record is missing.
func Visible(a *domain.Auction, seller, viewer *domain.User) bool {
	if viewer != nil && viewer.ID == a.SellerID {
		return true
	}
	if viewer == nil {
		return a.VisibilityType == domain.VisibilityAll
	}

	switch a.VisibilityType {
	case domain.VisibilityAll:
		return true
	case domain.VisibilityFavorites:
		// The seller's favorites, not the viewer's: an invite list.
		return seller != nil && seller.HasFavorite(viewer.ID)
	case domain.VisibilityRadius:
		return withinRadius(a.VisibilityRadius, seller, viewer)
	default:
		return false
	}
}

func withinRadius(radius *int, seller, viewer *domain.User) bool {
	if radius == nil {
		return false
	}
	if *radius > OpenRadius {
		return true
	}
	if seller == nil || !located(seller) || !located(viewer) {
		return false
	}
	return DistanceMiles(*seller.Latitude, *seller.Longitude, *viewer.Latitude, *viewer.Longitude) <= float64(*radius)
}

func located(u *domain.User) bool {
	return u.Latitude != nil && u.Longitude != nil
}

// DistanceMiles is the great-circle distance between two points.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}

// Resolver applies Visible against stored sellers and motorcycles.
type Resolver struct {
	store store.Reader
}

func NewResolver(r store.Reader) *Resolver {
	return &Resolver{store: r}
}

// IsVisible never returns an error: anything it cannot resolve is hidden.
func (r *Resolver) IsVisible(ctx context.Context, a *domain.Auction, viewer *domain.User) bool {
	if _, err := r.store.GetMotorcycle(ctx, a.MotorcycleID); err != nil {
		zap.L().Warn("visibility.dangling_motorcycle",
			zap.String("auction_id", a.ID),
			zap.String("motorcycle_id", a.MotorcycleID),
			zap.Error(err))
		return false
	}
	return Visible(a, r.seller(ctx, a), viewer)
}

// Filter keeps the auctions viewer may see, preserving order.
func (r *Resolver) Filter(ctx context.Context, auctions []domain.Auction, viewer *domain.User) []domain.Auction {
	sellers := make(map[string]*domain.User)
	out := make([]domain.Auction, 0, len(auctions))
	for i := range auctions {
		a := &auctions[i]
		if _, err := r.store.GetMotorcycle(ctx, a.MotorcycleID); err != nil {
			zap.L().Warn("visibility.dangling_motorcycle",
				zap.String("auction_id", a.ID),
				zap.String("motorcycle_id", a.MotorcycleID),
				zap.Error(err))
			continue
		}
		seller, seen := sellers[a.SellerID]
		if !seen {
			seller = r.seller(ctx, a)
			sellers[a.SellerID] = seller
		}
		if Visible(a, seller, viewer) {
			out = append(out, *a)
		}
	}
	return out
}

func (r *Resolver) seller(ctx context.Context, a *domain.Auction) *domain.User {
	u, err := r.store.GetUser(ctx, a.SellerID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			zap.L().Warn("visibility.seller_lookup", zap.String("seller_id", a.SellerID), zap.Error(err))
		}
		return nil
	}
	return u
}
