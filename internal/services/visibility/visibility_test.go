package visibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motortrade/internal/domain"
	"motortrade/internal/store"
	"motortrade/internal/store/memstore"
)

func ptr[T any](v T) *T { return &v }

func TestVisible(t *testing.T) {
	london := &domain.User{ID: "seller", Latitude: ptr(51.5074), Longitude: ptr(-0.1278), Favorites: []string{"friend"}}
	reading := &domain.User{ID: "near", Latitude: ptr(51.4543), Longitude: ptr(-0.9781)}
	leeds := &domain.User{ID: "far", Latitude: ptr(53.8008), Longitude: ptr(-1.5491)}
	friend := &domain.User{ID: "friend"}
	stranger := &domain.User{ID: "stranger", Favorites: []string{"seller"}}

	all := &domain.Auction{SellerID: "seller", VisibilityType: domain.VisibilityAll}
	fav := &domain.Auction{SellerID: "seller", VisibilityType: domain.VisibilityFavorites}
	near := &domain.Auction{SellerID: "seller", VisibilityType: domain.VisibilityRadius, VisibilityRadius: ptr(50)}
	wide := &domain.Auction{SellerID: "seller", VisibilityType: domain.VisibilityRadius, VisibilityRadius: ptr(150)}

	cases := []struct {
		name    string
		auction *domain.Auction
		seller  *domain.User
		viewer  *domain.User
		want    bool
	}{
		{"seller sees own favorites auction", fav, london, london, true},
		{"anonymous sees all", all, london, nil, true},
		{"anonymous never sees favorites", fav, london, nil, false},
		{"anonymous never sees radius", wide, london, nil, false},
		{"dealer sees all", all, london, stranger, true},
		{"invited dealer sees favorites", fav, london, friend, true},
		{"viewer favoriting seller is not an invite", fav, london, stranger, false},
		{"missing seller hides favorites", fav, nil, friend, false},
		{"within radius", near, london, reading, true},
		{"outside radius", near, london, leeds, false},
		{"wide radius is open", wide, london, leeds, true},
		{"unknown location hides", near, london, friend, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Visible(tc.auction, tc.seller, tc.viewer))
		})
	}
}

func TestDistanceMiles(t *testing.T) {
	// London to Leeds is roughly 170 miles.
	d := DistanceMiles(51.5074, -0.1278, 53.8008, -1.5491)
	assert.InDelta(t, 170, d, 5)
}

func TestResolverFilterDropsDanglingMotorcycle(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutUser(ctx, &domain.User{ID: "seller"}); err != nil {
			return err
		}
		return tx.PutMotorcycle(ctx, &domain.Motorcycle{ID: "m1", DealerID: "seller"})
	}))

	auctions := []domain.Auction{
		{ID: "ok", MotorcycleID: "m1", SellerID: "seller", VisibilityType: domain.VisibilityAll},
		{ID: "dangling", MotorcycleID: "gone", SellerID: "seller", VisibilityType: domain.VisibilityAll},
	}
	r := NewResolver(s)
	out := r.Filter(ctx, auctions, &domain.User{ID: "viewer"})
	require.Len(t, out, 1)
	require.Equal(t, "ok", out[0].ID)
	require.False(t, r.IsVisible(ctx, &auctions[1], &domain.User{ID: "seller"}))
}
