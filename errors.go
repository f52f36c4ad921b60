package cunit

import (
	"errors"
	"fmt"
)

var (
	// ErrNilUnit occurs when a constructor yields no unit.
	ErrNilUnit = errors.New("constructor returned no compilation unit")
	// ErrUnknownKind occurs when an envelope names a kind missing from the Registry.
	ErrUnknownKind = errors.New("unknown unit kind")
	// ErrKindExists occurs when registering the same kind twice.
	ErrKindExists = errors.New("unit kind already registered")
	// ErrNotEnvelope occurs when the artifact is not an envelope.
	ErrNotEnvelope = errors.New("artifact is not an envelope")
	// ErrNoObjects occurs when an object artifact reaches a Runtime built without object support.
	ErrNoObjects = errors.New("object artifacts not supported")
	// ErrCircularLoad occurs when a unit loads an identifier which is still activating on the same path.
	ErrCircularLoad = errors.New("circular load")
)

// ControlTransfer is a non-local control signal raised by a unit's load hook.
//
// It is not a failure: Loader.Load hands the very same value back to its caller.
type ControlTransfer struct {
	Payload any
}

func (c *ControlTransfer) Error() string {
	return fmt.Sprintf("control transfer: %v", c.Payload)
}

// Exit is the payload of a control transfer which asks the host to stop with a status code.
type Exit struct {
	Code int
}

func (e Exit) String() string {
	return fmt.Sprintf("exit(%d)", e.Code)
}

// FatalError is the uniform failure of a load.
type FatalError struct {
	Identifier  string
	Description string
	Cause       error
}

func (f *FatalError) Error() string {
	if f.Identifier == "" {
		return f.Description
	}
	return fmt.Sprintf("load %s: %s", f.Identifier, f.Description)
}

func (f *FatalError) Unwrap() error {
	return f.Cause
}

// Die builds the FatalError of identifier from a failure.
func Die(identifier string, cause error) *FatalError {
	return &FatalError{Identifier: identifier, Description: cause.Error(), Cause: cause}
}

// Outcome classifies the result of Loader.Load.
type Outcome int

const (
	Completed Outcome = iota
	Transferred
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Transferred:
		return "transferred"
	default:
		return "fatal"
	}
}

// OutcomeOf maps a load result onto its Outcome.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return Completed
	}
	if _, ok := err.(*ControlTransfer); ok {
		return Transferred
	}
	return Fatal
}

// asTransfer reports whether err is itself a control transfer. Wrapped transfers do not count,
// a unit that wraps one has turned it into a failure.
func asTransfer(err error) (*ControlTransfer, bool) {
	ct, ok := err.(*ControlTransfer)
	return ct, ok
}
