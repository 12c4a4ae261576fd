// Package arguments defines Argument, the binding of one model input or output to a caller
// buffer, a memory pool range, or to no value at all.
//
// The binding location is a tagged variant (Location): each variant only carries the fields
// it needs, so there are no invalid combinations of "pointer" and "pool" fields.
package arguments

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/shapes"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Kind of Location.
type Kind int

const (
	KindUnspecified Kind = iota
	KindPointer
	KindPool
	KindNoValue
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindUnspecified:
		return "UNSPECIFIED"
	case KindPointer:
		return "POINTER"
	case KindPool:
		return "MEMORY"
	case KindNoValue:
		return "HAS_NO_VALUE"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Location of the data of an Argument. It is one of Unspecified, Pointer, PoolRange or NoValue.
type Location interface {
	Kind() Kind
	isLocation()
}

// Unspecified is the Location of an Argument not bound yet.
type Unspecified struct{}

// NoValue is the Location of an optional operand explicitly omitted.
type NoValue struct{}

// Pointer is the Location of an Argument bound to a caller buffer.
type Pointer struct {
	Buffer []byte
}

// PoolRange is the Location of an Argument bound to a range of a memory pool.
// Pool is an index into the memory.Table of the execution (or step) holding the Argument.
type PoolRange struct {
	Pool           int
	Offset, Length uint32
}

func (Unspecified) Kind() Kind { return KindUnspecified }
func (NoValue) Kind() Kind     { return KindNoValue }
func (Pointer) Kind() Kind     { return KindPointer }
func (PoolRange) Kind() Kind   { return KindPool }

func (Unspecified) isLocation() {}
func (NoValue) isLocation()     {}
func (Pointer) isLocation()     {}
func (PoolRange) isLocation()   {}

// Argument is the binding of one input or output operand.
type Argument struct {
	// Location of the data. A nil Location is the same as Unspecified.
	Location Location

	// Dimensions currently known for the operand, 0 for unspecified axes.
	Dimensions []int

	// Insufficient is set on outputs when a device reported the bound buffer was too small.
	Insufficient bool
}

// Kind returns the kind of the Location.
func (a *Argument) Kind() Kind {
	if a.Location == nil {
		return KindUnspecified
	}
	return a.Location.Kind()
}

// Length is the declared length in bytes for Pointer and PoolRange bindings, 0 otherwise.
func (a *Argument) Length() int {
	switch loc := a.Location.(type) {
	case Pointer:
		return len(loc.Buffer)
	case PoolRange:
		return int(loc.Length)
	default:
		return 0
	}
}

// Clone returns a copy of the argument that doesn't share Dimensions. The buffer, if any, is shared.
func (a Argument) Clone() Argument {
	a.Dimensions = slices.Clone(a.Dimensions)
	return a
}

// String implements fmt.Stringer.
func (a Argument) String() string {
	dims := fmt.Sprintf("%v", a.Dimensions)
	switch loc := a.Location.(type) {
	case Pointer:
		return fmt.Sprintf("POINTER(%s, dims=%s)", humanize.Bytes(uint64(len(loc.Buffer))), dims)
	case PoolRange:
		return fmt.Sprintf("MEMORY(pool=%d, off=%d, len=%d, dims=%s)", loc.Pool, loc.Offset, loc.Length, dims)
	default:
		return a.Kind().String()
	}
}

// MaxLength is the largest byte length an argument can be bound with.
const MaxLength = math.MaxUint32

// operandDimensions returns the dimensions to use for operand given an optional override.
func operandDimensions(operand shapes.OperandType, override *shapes.OperandType) []int {
	if override != nil {
		return slices.Clone(override.Dimensions)
	}
	return slices.Clone(operand.Dimensions)
}

// CheckOverride validates the optional override type against the operand declared type.
//
// If allowUnspecified is false, the resulting type must be fully specified: that is the case for
// arguments whose data the device needs to know the exact size of.
func CheckOverride(operand shapes.OperandType, override *shapes.OperandType, allowUnspecified bool) error {
	if override == nil {
		if !allowUnspecified && operand.HasUnspecifiedDimensions() {
			return errors.Wrapf(status.ErrBadData, "operand type %s is not fully specified", operand)
		}
		return nil
	}
	if err := override.Validate(allowUnspecified); err != nil {
		return errors.Wrapf(status.ErrBadData, "invalid override type: %v", err)
	}
	if _, err := shapes.Refine(operand, *override); err != nil {
		return errors.Wrap(status.ErrBadData, err.Error())
	}
	return nil
}

// FromPointer returns an Argument bound to buffer. A nil buffer binds NoValue.
//
// The override type must have been checked with CheckOverride. If the resulting type is fully
// specified, the buffer length must match its size in bytes.
func FromPointer(operand shapes.OperandType, override *shapes.OperandType, buffer []byte) (Argument, error) {
	if buffer == nil {
		return Argument{Location: NoValue{}}, nil
	}
	if uint64(len(buffer)) > MaxLength {
		return Argument{}, errors.Wrapf(status.ErrBadData, "buffer of %s exceeds max length",
			humanize.Bytes(uint64(len(buffer))))
	}
	arg := Argument{
		Location:   Pointer{Buffer: buffer},
		Dimensions: operandDimensions(operand, override),
	}
	if err := CheckLength(operand, arg.Dimensions, len(buffer)); err != nil {
		return Argument{}, err
	}
	return arg, nil
}

// FromPool returns an Argument bound to the range [offset, offset+length) of the pool with the
// given index. Pool bounds must have been validated by the caller.
func FromPool(operand shapes.OperandType, override *shapes.OperandType, poolIndex, offset, length int) (Argument, error) {
	if offset < 0 || length < 0 || uint64(offset) > MaxLength || uint64(length) > MaxLength {
		return Argument{}, errors.Wrapf(status.ErrBadData, "memory range offset=%d, length=%d out of range", offset, length)
	}
	arg := Argument{
		Location:   PoolRange{Pool: poolIndex, Offset: uint32(offset), Length: uint32(length)},
		Dimensions: operandDimensions(operand, override),
	}
	if length != 0 {
		if err := CheckLength(operand, arg.Dimensions, length); err != nil {
			return Argument{}, err
		}
	}
	return arg, nil
}

// FromTemporary returns an Argument bound to a step temporary, stored in the pool with the given
// index at offset. The operand must be fully specified.
func FromTemporary(operand shapes.OperandType, poolIndex, offset int) Argument {
	return Argument{
		Location:   PoolRange{Pool: poolIndex, Offset: uint32(offset), Length: uint32(operand.ByteSize())},
		Dimensions: slices.Clone(operand.Dimensions),
	}
}

// CheckLength verifies length matches the byte size of the operand with the given dimensions,
// if they are fully specified.
func CheckLength(operand shapes.OperandType, dimensions []int, length int) error {
	t := shapes.OperandType{DType: operand.DType, Tensor: operand.Tensor, Dimensions: dimensions}
	needed := t.ByteSize()
	if needed != 0 && needed != length {
		return errors.Wrapf(status.ErrBadData, "argument of type %s needs %d bytes, got %d", t, needed, length)
	}
	return nil
}

// Log logs the arguments with the given kind ("input" or "output") prefix, at verbosity level 2.
func Log(kind string, args []Argument) {
	if !klog.V(2).Enabled() {
		return
	}
	var sb strings.Builder
	for ii, arg := range args {
		_, _ = fmt.Fprintf(&sb, "\n\t%s[%d] = %s", kind, ii, arg)
	}
	klog.Infof("%d %s arguments:%s", len(args), kind, sb.String())
}
