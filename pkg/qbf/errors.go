package qbf

import (
	"errors"
	"fmt"

	"github.com/go-air/gini/z"
)

// The errors below signal a violated structural invariant. They are
// never the result of bad luck at runtime, so a caller receiving one
// must not retry or continue with the affected prefix or matrix.
var (
	ErrAlreadyBound            = errors.New("variable cannot be bound twice")
	ErrUnknownScope            = errors.New("scope does not exist")
	ErrNegativeScope           = errors.New("scope ids have to be non-negative")
	ErrNotSupported            = errors.New("operation not supported by tree prefix")
	ErrInconsistentOccurrences = errors.New("inconsistent occurrence index")
	ErrInconsistentScope       = errors.New("variable scope disagrees with its quantifier")
	ErrNotBound                = errors.New("variable is not bound")
	ErrNullVariable            = errors.New("0 is not a valid variable")
)

// BindingError reports a failed attempt to bind Variable to Scope.
type BindingError struct {
	Variable z.Var
	Scope    ScopeID
	Err      error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("binding variable %d to scope %d: %s", e.Variable, e.Scope, e.Err)
}

func (e *BindingError) Unwrap() error {
	return e.Err
}
