// Package dealer manages dealer profiles, their favorite-dealer invite
// lists and the motorcycle catalogue. Motorcycle status is owned by the
// auction service and is never written here.
package dealer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"motortrade/internal/domain"
	"motortrade/internal/store"
)

type ProfileInput struct {
	Name      string   `json:"name"      validate:"required,max=120"`
	Email     string   `json:"email"     validate:"omitempty,email"`
	Latitude  *float64 `json:"latitude"  validate:"omitempty,gte=-90,lte=90"  example:"51.5074"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180" example:"-0.1278"`
}

type MotorcycleInput struct {
	Make         string `json:"make"         validate:"required,max=60"`
	Model        string `json:"model"        validate:"required,max=60"`
	Year         int    `json:"year"         validate:"gte=1900,lte=2100"`
	Mileage      int    `json:"mileage"      validate:"gte=0"`
	Registration string `json:"registration" validate:"max=16"`
	Description  string `json:"description"  validate:"max=4000"`
}

// MotorcyclePatch carries descriptive fields only; nil leaves a field as is.
type MotorcyclePatch struct {
	Make         *string `json:"make"         validate:"omitempty,min=1,max=60"`
	Model        *string `json:"model"        validate:"omitempty,min=1,max=60"`
	Year         *int    `json:"year"         validate:"omitempty,gte=1900,lte=2100"`
	Mileage      *int    `json:"mileage"      validate:"omitempty,gte=0"`
	Registration *string `json:"registration" validate:"omitempty,max=16"`
	Description  *string `json:"description"  validate:"omitempty,max=4000"`
}

type IDealerService interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpsertProfile(ctx context.Context, userID string, in ProfileInput) (*domain.User, error)
	AddFavorite(ctx context.Context, userID, dealerID string) (*domain.User, error)
	RemoveFavorite(ctx context.Context, userID, dealerID string) (*domain.User, error)

	CreateMotorcycle(ctx context.Context, dealerID string, in MotorcycleInput) (*domain.Motorcycle, error)
	ListMotorcycles(ctx context.Context, dealerID string) ([]domain.Motorcycle, error)
	GetMotorcycle(ctx context.Context, id string) (*domain.Motorcycle, error)
	UpdateMotorcycle(ctx context.Context, id, callerID string, p MotorcyclePatch) (*domain.Motorcycle, error)
}

type dealerService struct {
	store    store.Store
	validate *validator.Validate
	now      func() time.Time
	timeout  time.Duration
}

func NewDealerService(st store.Store, timeout time.Duration, now func() time.Time) IDealerService {
	if now == nil {
		now = time.Now
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &dealerService{
		store:    st,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      func() time.Time { return now().UTC() },
		timeout:  timeout,
	}
}

func (svc *dealerService) check(in any) error {
	if err := svc.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return domain.Validationf("%s", strings.Join(fields, "; "))
		}
		return domain.Validationf("%v", err)
	}
	return nil
}

func (svc *dealerService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()
	return svc.store.GetUser(ctx, userID)
}

func (svc *dealerService) UpsertProfile(ctx context.Context, userID string, in ProfileInput) (*domain.User, error) {
	if err := svc.check(in); err != nil {
		return nil, err
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, domain.Validationf("latitude and longitude go together")
	}
	return svc.editUser(ctx, userID, true, func(u *domain.User) error {
		u.Name = in.Name
		u.Email = in.Email
		u.Latitude = in.Latitude
		u.Longitude = in.Longitude
		return nil
	})
}

// AddFavorite puts dealerID on the caller's invite list. Adding twice is a
// no-op.
func (svc *dealerService) AddFavorite(ctx context.Context, userID, dealerID string) (*domain.User, error) {
	if dealerID == "" {
		return nil, domain.Validationf("dealerId is required")
	}
	if dealerID == userID {
		return nil, domain.Validationf("cannot favorite yourself")
	}
	return svc.editUser(ctx, userID, true, func(u *domain.User) error {
		if !u.HasFavorite(dealerID) {
			u.Favorites = append(u.Favorites, dealerID)
		}
		return nil
	})
}

func (svc *dealerService) RemoveFavorite(ctx context.Context, userID, dealerID string) (*domain.User, error) {
	return svc.editUser(ctx, userID, false, func(u *domain.User) error {
		u.Favorites = slices.DeleteFunc(u.Favorites, func(id string) bool { return id == dealerID })
		return nil
	})
}

func (svc *dealerService) editUser(ctx context.Context, userID string, create bool, edit func(u *domain.User) error) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()

	var out *domain.User
	err := svc.store.Update(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(ctx, userID)
		switch {
		case errors.Is(err, domain.ErrNotFound) && create:
			u = &domain.User{ID: userID, CreatedAt: svc.now()}
		case err != nil:
			return err
		}
		if err := edit(u); err != nil {
			return err
		}
		if u.Favorites == nil {
			u.Favorites = []string{}
		}
		out = u
		return tx.PutUser(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (svc *dealerService) CreateMotorcycle(ctx context.Context, dealerID string, in MotorcycleInput) (*domain.Motorcycle, error) {
	if err := svc.check(in); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()

	now := svc.now()
	m := &domain.Motorcycle{
		ID:           uuid.NewString(),
		DealerID:     dealerID,
		Make:         in.Make,
		Model:        in.Model,
		Year:         in.Year,
		Mileage:      in.Mileage,
		Registration: strings.ToUpper(strings.ReplaceAll(in.Registration, " ", "")),
		Description:  in.Description,
		Status:       domain.MotorcycleAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := svc.store.Update(ctx, func(tx store.Tx) error { return tx.PutMotorcycle(ctx, m) }); err != nil {
		return nil, err
	}
	zap.L().Info("dealer.create_motorcycle", zap.String("motorcycle_id", m.ID), zap.String("dealer_id", dealerID))
	return m, nil
}

func (svc *dealerService) ListMotorcycles(ctx context.Context, dealerID string) ([]domain.Motorcycle, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()
	return svc.store.ListMotorcycles(ctx, store.MotorcycleFilter{DealerID: dealerID})
}

func (svc *dealerService) GetMotorcycle(ctx context.Context, id string) (*domain.Motorcycle, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()
	return svc.store.GetMotorcycle(ctx, id)
}

func (svc *dealerService) UpdateMotorcycle(ctx context.Context, id, callerID string, p MotorcyclePatch) (*domain.Motorcycle, error) {
	if err := svc.check(p); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()

	var out *domain.Motorcycle
	err := svc.store.Update(ctx, func(tx store.Tx) error {
		m, err := tx.GetMotorcycle(ctx, id)
		if err != nil {
			return err
		}
		if m.DealerID != callerID {
			return domain.ErrNotOwner
		}
		if m.Status == domain.MotorcycleSold {
			return domain.ErrMotorcycleSold
		}
		if p.Make != nil {
			m.Make = *p.Make
		}
		if p.Model != nil {
			m.Model = *p.Model
		}
		if p.Year != nil {
			m.Year = *p.Year
		}
		if p.Mileage != nil {
			m.Mileage = *p.Mileage
		}
		if p.Registration != nil {
			m.Registration = strings.ToUpper(strings.ReplaceAll(*p.Registration, " ", ""))
		}
		if p.Description != nil {
			m.Description = *p.Description
		}
		m.UpdatedAt = svc.now()
		out = m
		return tx.PutMotorcycle(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
