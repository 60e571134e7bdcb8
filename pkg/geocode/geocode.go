// Package geocode adapts the external address-resolution provider with rate
// limiting, retry, and a typed failure taxonomy.
package geocode

import (
	"context"
	"fmt"
)

// Result holds the coordinates for a successfully resolved address.
type Result struct {
	Lat        float64
	Lng        float64
	Confidence float64 // 0.0–1.0, derived from the provider's match quality
	Provider   string
}

// FailureKind classifies a resolution failure.
type FailureKind string

const (
	// FailureNotFound means the provider returned zero results. Permanent.
	FailureNotFound FailureKind = "not_found"
	// FailureInvalidRequest means the request was malformed or rejected. Permanent.
	FailureInvalidRequest FailureKind = "invalid_request"
	// FailureQuotaExceeded means the provider's quota or billing limit was hit.
	FailureQuotaExceeded FailureKind = "quota_exceeded"
	// FailureTransient covers timeouts and 5xx-equivalent errors. Retryable.
	FailureTransient FailureKind = "transient"
)

// ResolutionFailure is the typed error surfaced per address. Failures are
// never cached, so a later run can retry the address.
type ResolutionFailure struct {
	Kind    FailureKind
	Address string
	Err     error
}

func (e *ResolutionFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geocode %q: %s: %v", e.Address, e.Kind, e.Err)
	}
	return fmt.Sprintf("geocode %q: %s", e.Address, e.Kind)
}

func (e *ResolutionFailure) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is safe to retry within a run.
func (e *ResolutionFailure) Retryable() bool {
	return e.Kind == FailureTransient
}

// NewFailure creates a ResolutionFailure.
func NewFailure(kind FailureKind, address string, err error) *ResolutionFailure {
	return &ResolutionFailure{Kind: kind, Address: address, Err: err}
}

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*Result, error)
	Available() bool
}
