package equivalency

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotRegistered is returned when no relation is configured for a type pair.
	ErrNotRegistered = errors.New("equivalency not registered")

	// ErrInvalidArgument is returned for absent sources or absent relations.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNonDecomposable is returned when a relation's source side cannot be folded into constants.
	ErrNonDecomposable = errors.New("relation is not decomposable")

	// ErrInvalidExpression is returned when a relation tree fails validation.
	ErrInvalidExpression = errors.New("invalid expression")

	// ErrEvaluation is returned when a tree cannot be evaluated against concrete values.
	ErrEvaluation = errors.New("evaluation failed")

	// ErrRegistryFrozen is returned when registering after configuration has been sealed.
	ErrRegistryFrozen = errors.New("registry is frozen")
)

// NotRegisteredError reports the type pair that has no relation.
type NotRegisteredError struct {
	Pair TypePair
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("no equivalency registered for %s", e.Pair)
}

func (e *NotRegisteredError) Is(target error) bool {
	return target == ErrNotRegistered
}

// NonDecomposableError names the node the specializer could not fold.
type NonDecomposableError struct {
	Node   string
	Reason string
}

func (e *NonDecomposableError) Error() string {
	return fmt.Sprintf("cannot specialize %s: %s", e.Node, e.Reason)
}

func (e *NonDecomposableError) Is(target error) bool {
	return target == ErrNonDecomposable
}

// EvalError describes a failure while evaluating a node.
type EvalError struct {
	Node    string
	Message string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluate %s: %s", e.Node, e.Message)
}

func (e *EvalError) Is(target error) bool {
	return target == ErrEvaluation
}

func newEvalError(node Expr, format string, args ...any) error {
	return &EvalError{Node: node.String(), Message: fmt.Sprintf(format, args...)}
}

// IsNotRegistered checks if an error is a missing registration error
func IsNotRegistered(err error) bool {
	return errors.Is(err, ErrNotRegistered)
}

// IsInvalidArgument checks if an error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsNonDecomposable checks if an error is a specialization failure
func IsNonDecomposable(err error) bool {
	return errors.Is(err, ErrNonDecomposable)
}
