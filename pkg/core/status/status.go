// Package status defines the results of an execution: the Status codes reported by devices,
// the sentinel errors for violations of the caller contract, and the per-output shapes and
// timing delivered when an execution finishes.
package status

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Status is the result of running a program on a device, or of a whole execution.
type Status int

//go:generate go tool enumer -type=Status -transform=snake -output=gen_status_enumer.go status.go

const (
	// None means success.
	None Status = iota

	DeviceUnavailable
	GeneralFailure

	// OutputInsufficientSize means a caller provided output buffer was too small for the result.
	// It is a caller problem, not a device problem, and it is never retried on another device.
	OutputInsufficientSize

	InvalidArgument
	MissedDeadlineTransient
	MissedDeadlinePersistent
	ResourceExhaustedTransient
	ResourceExhaustedPersistent
	DeadObject
)

// Caller contract violations. They are detected locally and never retried.
var (
	// ErrInvalidState is returned when an operation is not allowed in the current state of the execution.
	ErrInvalidState = errors.New("invalid execution state")

	// ErrBadIndex is returned for out-of-range input or output indices.
	ErrBadIndex = errors.New("bad operand index")

	// ErrBadData is returned for invalid operand types, buffers, memory ranges or unbound arguments.
	ErrBadData = errors.New("bad data")

	// ErrOutputInsufficientSize is matched (with errors.Is) by errors of Status OutputInsufficientSize.
	// It is also returned as a soft signal when querying the dimensions of an insufficient output.
	ErrOutputInsufficientSize = errors.New("output insufficient size")
)

// Error is an error carrying a non-success Status.
type Error struct {
	Status Status
	msg    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.msg == "" {
		return fmt.Sprintf("execution failed with status %s", e.Status)
	}
	return fmt.Sprintf("%s: status %s", e.msg, e.Status)
}

// Is allows errors.Is(err, ErrOutputInsufficientSize) for errors with that status.
func (e *Error) Is(target error) bool {
	return e.Status == OutputInsufficientSize && target == ErrOutputInsufficientSize
}

// Err returns nil for None, or an *Error carrying s.
func (s Status) Err() error {
	if s == None {
		return nil
	}
	return &Error{Status: s}
}

// Errorf returns an *Error carrying s and a formatted message.
func Errorf(s Status, format string, args ...any) error {
	return &Error{Status: s, msg: fmt.Sprintf(format, args...)}
}

// FromError maps an error back to a Status: None for nil, the carried Status for an *Error
// (possibly wrapped), and GeneralFailure for anything else.
func FromError(err error) Status {
	if err == nil {
		return None
	}
	var statusErr *Error
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return GeneralFailure
}

// OutputShape is the final shape of an output as determined by a device.
type OutputShape struct {
	Dimensions []int

	// IsSufficient tells whether the caller-provided buffer was large enough to hold the result.
	IsSufficient bool
}

// NotMeasured is the sentinel duration used when timing was not measured.
const NotMeasured time.Duration = -1

// Timing reported by a device for one execution.
type Timing struct {
	OnDevice, InDriver time.Duration
}

// NoTiming is the Timing with nothing measured.
var NoTiming = Timing{OnDevice: NotMeasured, InDriver: NotMeasured}

// DurationCode selects which measured Timing value to query.
type DurationCode int

const (
	// DurationOnHardware is the time spent executing on the device itself.
	DurationOnHardware DurationCode = iota

	// DurationInDriver is the time spent in the device driver, including DurationOnHardware.
	DurationInDriver
)

// Select returns the duration for the given code.
func (t Timing) Select(code DurationCode) (time.Duration, error) {
	switch code {
	case DurationOnHardware:
		return t.OnDevice, nil
	case DurationInDriver:
		return t.InDriver, nil
	default:
		return NotMeasured, errors.Wrapf(ErrBadData, "unknown duration code %d", code)
	}
}
