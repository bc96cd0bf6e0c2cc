package domain

import "errors"

var (
	// Pipeline errors
	ErrNoOrderReference     = errors.New("no order reference in event")
	ErrOrderNotFound        = errors.New("order not found")
	ErrMissingSite          = errors.New("missing site qualifier")
	ErrAccountNotConfigured = errors.New("account not configured")
	ErrInvalidArgument      = errors.New("invalid argument")
)
