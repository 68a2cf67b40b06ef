package scheduler

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/lsp/core/chain"
	"github.com/kilianp07/lsp/core/resource"
)

var (
	// ErrKindMismatch is returned when a strategy is asked to schedule a
	// resource of another kind.
	ErrKindMismatch = errors.New("resource kind does not match scheduler")
	// ErrInvalidBufferTime rejects negative, NaN or infinite buffer times.
	ErrInvalidBufferTime = errors.New("buffer time must be finite and non-negative")
	// ErrUnroutedShipment is returned when a shipment could not be planned.
	ErrUnroutedShipment = errors.New("shipment could not be routed")
	// ErrInvalidPass is returned when staged work fails validation.
	ErrInvalidPass = errors.New("invalid scheduling pass")

	ErrOrderViolation = chain.ErrOrderViolation
	ErrConservation   = chain.ErrConservation
)

// ValidateBufferTime checks the time added between two chain elements.
func ValidateBufferTime(b float64) error {
	if math.IsNaN(b) || math.IsInf(b, 0) || b < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidBufferTime, b)
	}
	return nil
}

func kindMismatch(want resource.Kind, got resource.Resource) error {
	if got == nil {
		return fmt.Errorf("%w: expected %s, got nil resource", ErrKindMismatch, want)
	}
	return fmt.Errorf("%w: expected %s, got %s (%s)", ErrKindMismatch, want, got.Kind(), got.ID())
}
