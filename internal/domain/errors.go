package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service wraps exactly one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation error")
)

var (
	ErrAuctionNotActive  = fmt.Errorf("%w: auction not active", ErrInvalidState)
	ErrAuctionEnded      = fmt.Errorf("%w: auction ended", ErrInvalidState)
	ErrAuctionClosed     = fmt.Errorf("%w: auction closed", ErrInvalidState)
	ErrAlreadyAccepted   = fmt.Errorf("%w: bid already accepted", ErrInvalidState)
	ErrAlreadyConfirmed  = fmt.Errorf("%w: already confirmed", ErrInvalidState)
	ErrNotAccepted       = fmt.Errorf("%w: no bid accepted", ErrInvalidState)
	ErrDealNotConfirmed  = fmt.Errorf("%w: deal not confirmed", ErrInvalidState)
	ErrHasBids           = fmt.Errorf("%w: auction has bids", ErrInvalidState)
	ErrMotorcycleBusy    = fmt.Errorf("%w: motorcycle already has an open auction", ErrInvalidState)
	ErrMotorcycleSold    = fmt.Errorf("%w: motorcycle sold", ErrInvalidState)
	ErrResetDisabled     = fmt.Errorf("%w: reset disabled", ErrInvalidState)
	ErrBidBelowIncrement = fmt.Errorf("%w: bid below min increment", ErrValidation)

	ErrNotSeller         = fmt.Errorf("%w: caller is not the seller", ErrUnauthorized)
	ErrNotWinner         = fmt.Errorf("%w: caller is not the winning bidder", ErrUnauthorized)
	ErrNotOwner          = fmt.Errorf("%w: caller is not the owner", ErrUnauthorized)
	ErrOwnAuction        = fmt.Errorf("%w: sellers cannot bid on their own auction", ErrUnauthorized)
	ErrBidWrongAuction   = fmt.Errorf("%w: bid does not belong to auction", ErrValidation)
	ErrInvalidAmount     = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidEndTime    = fmt.Errorf("%w: end time must be in the future", ErrValidation)
	ErrInvalidVisibility = fmt.Errorf("%w: invalid visibility", ErrValidation)
)

// Validationf builds an ad-hoc ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf builds an ad-hoc ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
