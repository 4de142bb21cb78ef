package dealer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motortrade/internal/domain"
	"motortrade/internal/store"
	"motortrade/internal/store/memstore"
)

func newSvc() (IDealerService, *memstore.Store) {
	s := memstore.New()
	now := func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC) }
	return NewDealerService(s, time.Second, now), s
}

func ptr[T any](v T) *T { return &v }

func TestProfileUpsertAndFavorites(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSvc()

	_, err := svc.GetProfile(ctx, "d1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.UpsertProfile(ctx, "d1", ProfileInput{Name: ""})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.UpsertProfile(ctx, "d1", ProfileInput{Name: "North Bikes", Latitude: ptr(95.0), Longitude: ptr(0.0)})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.UpsertProfile(ctx, "d1", ProfileInput{Name: "North Bikes", Latitude: ptr(51.0)})
	require.ErrorIs(t, err, domain.ErrValidation)

	u, err := svc.UpsertProfile(ctx, "d1", ProfileInput{Name: "North Bikes", Email: "north@example.com", Latitude: ptr(53.8), Longitude: ptr(-1.5)})
	require.NoError(t, err)
	assert.Equal(t, "North Bikes", u.Name)
	assert.NotNil(t, u.Favorites)

	_, err = svc.AddFavorite(ctx, "d1", "d1")
	require.ErrorIs(t, err, domain.ErrValidation)

	u, err = svc.AddFavorite(ctx, "d1", "d2")
	require.NoError(t, err)
	u, err = svc.AddFavorite(ctx, "d1", "d2")
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, u.Favorites)

	u, err = svc.RemoveFavorite(ctx, "d1", "d2")
	require.NoError(t, err)
	assert.Empty(t, u.Favorites)

	_, err = svc.RemoveFavorite(ctx, "ghost", "d2")
	require.ErrorIs(t, err, domain.ErrNotFound)

	got, err := svc.GetProfile(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "north@example.com", got.Email)
}

func TestMotorcycleCatalogue(t *testing.T) {
	ctx := context.Background()
	svc, s := newSvc()

	_, err := svc.CreateMotorcycle(ctx, "d1", MotorcycleInput{Make: "Yamaha", Year: 2020})
	require.ErrorIs(t, err, domain.ErrValidation)

	m, err := svc.CreateMotorcycle(ctx, "d1", MotorcycleInput{Make: "Yamaha", Model: "MT-07", Year: 2020, Mileage: 8000, Registration: "ab12 cde"})
	require.NoError(t, err)
	assert.Equal(t, domain.MotorcycleAvailable, m.Status)
	assert.Equal(t, "AB12CDE", m.Registration)

	list, err := svc.ListMotorcycles(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = svc.ListMotorcycles(ctx, "d2")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.UpdateMotorcycle(ctx, m.ID, "d2", MotorcyclePatch{Mileage: ptr(1)})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	up, err := svc.UpdateMotorcycle(ctx, m.ID, "d1", MotorcyclePatch{Mileage: ptr(8100), Description: ptr("new tyres")})
	require.NoError(t, err)
	assert.Equal(t, 8100, up.Mileage)
	assert.Equal(t, "MT-07", up.Model)
	assert.Equal(t, domain.MotorcycleAvailable, up.Status)

	// Sold stock is frozen.
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		up.Status = domain.MotorcycleSold
		return tx.PutMotorcycle(ctx, up)
	}))
	_, err = svc.UpdateMotorcycle(ctx, m.ID, "d1", MotorcyclePatch{Mileage: ptr(9000)})
	require.ErrorIs(t, err, domain.ErrMotorcycleSold)

	_, err = svc.GetMotorcycle(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
