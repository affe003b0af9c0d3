package event

import (
	"fmt"

	"github.com/calclabs/mathstream/pkg/mathstream/wire"
)

// BusError represents a failure to publish on the bus.
type BusError struct {
	Kind    wire.Kind // kind of the message that failed
	Message string
	Err     error
}

// Error implements the error interface.
func (e *BusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bus: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("bus: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *BusError) Unwrap() error {
	return e.Err
}
