package domain

import "errors"

var (
	// ErrDealNotFound covers both a missing deal id and an ownership
	// mismatch on owner-scoped calls.
	ErrDealNotFound = errors.New("deal not found")

	// ErrDealAlreadyClosed is returned by open-only mutations. Close
	// attempts never see it: a racing close converges on the winning
	// result instead of erroring.
	ErrDealAlreadyClosed = errors.New("deal already closed")

	// ErrInvalidRiskParams means a take-profit or stop-loss price lies on
	// the wrong side of the entry price for the deal's direction.
	ErrInvalidRiskParams = errors.New("invalid risk parameters")

	// ErrInvalidDealParams covers malformed open requests: unknown
	// direction, non-positive amount, zero multiplier.
	ErrInvalidDealParams = errors.New("invalid deal parameters")

	ErrUserNotFound = errors.New("user not found")

	// ErrPriceUnavailable indicates the feed could not supply a current
	// price for the symbol.
	ErrPriceUnavailable = errors.New("price unavailable")
)
