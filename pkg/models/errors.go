package models

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by the configuration workflow. Raw command errors
// are converted to one of these at the component boundary; callers decide
// retry versus abort from the kind, not from command output.
var (
	// ErrDetectionTimeout: no new interface appeared within the polling window.
	ErrDetectionTimeout = errors.New("no new USB interface detected within timeout")

	// ErrLinkNotEstablished: the detected adapter never reported carrier.
	ErrLinkNotEstablished = errors.New("physical link not established")

	// ErrConfigurationApply: assigning the address or bringing the
	// interface up failed.
	ErrConfigurationApply = errors.New("failed to apply network configuration")

	// ErrVerificationFailed: the target device did not answer the
	// reachability probe. Non-fatal by design; it degrades the run outcome
	// instead of aborting it.
	ErrVerificationFailed = errors.New("connectivity verification failed")

	// ErrPrivilegeDenied: the platform refused a mutating command for lack
	// of privileges.
	ErrPrivilegeDenied = errors.New("insufficient privileges")

	// ErrServiceOrderUnavailable: the service order could not be read or
	// written.
	ErrServiceOrderUnavailable = errors.New("network service order unavailable")
)

// ProtectedInterfaceError marks an attempted mutation of a protected
// interface. If the protected-set invariant is upheld it can never occur,
// so it is treated as a programming-contract violation and fails loudly.
type ProtectedInterfaceError struct {
	Name string
}

func (e *ProtectedInterfaceError) Error() string {
	return fmt.Sprintf("interface %s is protected and cannot be modified", e.Name)
}

// MalformedConfigError is a construction-time validation failure of a
// NetworkConfig. A config is never partially constructed.
type MalformedConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *MalformedConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *MalformedConfigError) Unwrap() error { return e.Err }

// TimeoutError records which operation exceeded its configured bound.
type TimeoutError struct {
	Op    string
	Bound string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Bound)
}
