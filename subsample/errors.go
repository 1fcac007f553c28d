package subsample

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidProportion is returned when a requested sampling proportion
	// falls outside (0, 1].
	ErrInvalidProportion = errors.New("proportion must be in (0, 1]")

	// ErrIncompatibleHandlerArgs is returned when a single Run mixes methods
	// that consume extra options with methods that do not.  Issue separate
	// Run calls and merge the stores with Combine instead.
	ErrIncompatibleHandlerArgs = errors.New("cannot mix option-taking and option-free methods when extra options are supplied")

	// ErrInvalidSeedReuse is returned when a store that already carries a
	// seed is assigned a different one.
	ErrInvalidSeedReuse = errors.New("store seed is immutable once set")
)

// ContractError reports a method whose output does not satisfy the handler
// contract: a required column is missing, or the row count disagrees with the
// matrix without an explicit ID column.
type ContractError struct {
	// Method is the name of the offending analysis method.
	Method string
	// Field is the missing required column, if any.
	Field string
	// Detail describes violations other than a missing column.
	Detail string
}

func (e *ContractError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("method %s: result is missing required column %q", e.Method, e.Field)
	}
	return fmt.Sprintf("method %s: %s", e.Method, e.Detail)
}
