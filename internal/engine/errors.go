package engine

import "errors"

// Domain failure taxonomy. Every action rejection wraps one of these;
// callers classify with errors.Is and no rejection ever leaves partial
// state behind.
var (
	ErrNotFound              = errors.New("not found")
	ErrNotOwned              = errors.New("not owned")
	ErrOnCooldown            = errors.New("on cooldown")
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrInvalidState          = errors.New("invalid state")
	ErrInvalidParameters     = errors.New("invalid parameters")
	ErrLedgerUnavailable     = errors.New("ledger unavailable")
)

// ErrorCode returns the stable wire code for a domain error, or
// "Internal" for anything outside the taxonomy.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrNotOwned):
		return "NotOwned"
	case errors.Is(err, ErrOnCooldown):
		return "OnCooldown"
	case errors.Is(err, ErrInsufficientResources):
		return "InsufficientResources"
	case errors.Is(err, ErrInvalidState):
		return "InvalidState"
	case errors.Is(err, ErrInvalidParameters):
		return "InvalidParameters"
	case errors.Is(err, ErrLedgerUnavailable):
		return "LedgerUnavailable"
	default:
		return "Internal"
	}
}
