package pkg

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports malformed construction parameters or negative costs.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOutOfRange reports a site or label index outside the declared bounds.
	ErrOutOfRange = errors.New("index out of range")
	// ErrInvalidNetwork reports a malformed flow network reaching the max-flow solver.
	ErrInvalidNetwork = errors.New("invalid flow network")
	// ErrPreconditionViolated reports an unsatisfied optimality precondition or an
	// operation that is not allowed in the current state.
	ErrPreconditionViolated = errors.New("precondition violated")
	// ErrOverflow reports an energy or capacity sum that does not fit in int64.
	ErrOverflow = fmt.Errorf("%w: energy overflow", ErrInvalidArgument)
)
