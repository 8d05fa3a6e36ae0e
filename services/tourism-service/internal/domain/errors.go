package domain

import (
	"errors"
	"fmt"
)

// The two error kinds surfaced to callers. Everything that is not a missing
// entity is an ErrServer.
var (
	ErrNotFound = errors.New("not_found")
	ErrServer   = errors.New("server_error")
)

var (
	ErrInvalidStatus      = fmt.Errorf("%w: invalid_status", ErrServer)
	ErrStaleStatus        = fmt.Errorf("%w: status_changed", ErrServer)
	ErrNotGuide           = fmt.Errorf("%w: not_a_guide", ErrServer)
	ErrDuplicateAccount   = fmt.Errorf("%w: account_exists", ErrServer)
	ErrPaymentIncomplete  = fmt.Errorf("%w: payment_incomplete", ErrServer)
	ErrGateway            = fmt.Errorf("%w: gateway", ErrServer)
	ErrNotificationFailed = fmt.Errorf("%w: notification_failed", ErrServer)
)

// SideEffectError is returned when the state change committed but a side
// effect after it did not. Committed names what is already durable.
type SideEffectError struct {
	Op        string
	Committed string
	Err       error
}

func (e *SideEffectError) Error() string {
	return fmt.Sprintf("%s: %s (already committed): %v", e.Op, e.Committed, e.Err)
}

func (e *SideEffectError) Unwrap() error { return e.Err }
