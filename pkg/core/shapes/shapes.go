// Package shapes defines OperandType, the data type and dimensions of a model input, output or
// intermediate value, and the tools to refine partially known dimensions.
//
// A dimension of 0 means "unspecified at this position". A tensor OperandType with no dimensions
// at all has an unknown rank. Scalars never have dimensions.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a tensor operand.
//   - Dimension: the size of the tensor along one of its axes, 0 if not yet known.
//   - Fully specified: a scalar, or a tensor with known rank and no unspecified dimension.
//   - Refinement: replacing unspecified (0) dimensions with concrete values. A concrete dimension
//     is never changed to a different concrete value.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// OperandType describes the type of one operand: its DType, whether it is a tensor, and
// its (possibly partially unspecified) dimensions.
type OperandType struct {
	DType dtypes.DType

	// Tensor indicates the operand is a tensor. Scalars must have no Dimensions.
	Tensor bool

	// Dimensions of the tensor, 0 for unspecified axes. Empty for scalars or tensors of unknown rank.
	Dimensions []int
}

// Scalar returns the OperandType of a scalar of the given dtype.
func Scalar(dtype dtypes.DType) OperandType {
	return OperandType{DType: dtype}
}

// Make returns a tensor OperandType with the given dtype and dimensions.
// Use 0 for the dimensions that are not yet known.
func Make(dtype dtypes.DType, dimensions ...int) OperandType {
	return OperandType{
		DType:      dtype,
		Tensor:     true,
		Dimensions: slices.Clone(dimensions),
	}
}

// Rank returns the number of known axes.
func (t OperandType) Rank() int {
	return len(t.Dimensions)
}

// Clone returns a deep copy of the OperandType.
func (t OperandType) Clone() OperandType {
	t.Dimensions = slices.Clone(t.Dimensions)
	return t
}

// HasUnspecifiedDimensions returns whether t is a tensor with unknown rank or with at least
// one unspecified dimension.
func (t OperandType) HasUnspecifiedDimensions() bool {
	if !t.Tensor {
		return false
	}
	return len(t.Dimensions) == 0 || slices.Contains(t.Dimensions, 0)
}

// Size returns the number of elements, or 0 if not fully specified.
func (t OperandType) Size() int {
	if !t.Tensor {
		return 1
	}
	if t.HasUnspecifiedDimensions() {
		return 0
	}
	size := 1
	for _, dim := range t.Dimensions {
		size *= dim
	}
	return size
}

// ByteSize returns the number of bytes needed to store a value of this type, or 0 if it is not
// fully specified.
func (t OperandType) ByteSize() int {
	return int(t.DType.Memory()) * t.Size()
}

// Validate checks the OperandType is well-formed.
// If allowUnspecified is false, tensors must be fully specified.
func (t OperandType) Validate(allowUnspecified bool) error {
	if t.DType == dtypes.InvalidDType {
		return errors.Errorf("operand type %s has an invalid dtype", t)
	}
	if !t.Tensor {
		if len(t.Dimensions) != 0 {
			return errors.Errorf("scalar operand type %s cannot have dimensions", t)
		}
		return nil
	}
	for axis, dim := range t.Dimensions {
		if dim < 0 {
			return errors.Errorf("operand type %s has a negative dimension %d for axis %d", t, dim, axis)
		}
	}
	if !allowUnspecified && t.HasUnspecifiedDimensions() {
		return errors.Errorf("operand type %s is not fully specified", t)
	}
	return nil
}

// Equal compares two operand types.
func (t OperandType) Equal(t2 OperandType) bool {
	return t.DType == t2.DType && t.Tensor == t2.Tensor && slices.Equal(t.Dimensions, t2.Dimensions)
}

// String implements fmt.Stringer. Unspecified dimensions are printed as "?".
func (t OperandType) String() string {
	if !t.Tensor {
		return fmt.Sprintf("(%s)", t.DType)
	}
	if len(t.Dimensions) == 0 {
		return fmt.Sprintf("(%s)[*]", t.DType)
	}
	parts := make([]string, len(t.Dimensions))
	for ii, dim := range t.Dimensions {
		if dim == 0 {
			parts[ii] = "?"
		} else {
			parts[ii] = fmt.Sprintf("%d", dim)
		}
	}
	return fmt.Sprintf("(%s)[%s]", t.DType, strings.Join(parts, " "))
}

// IsUpdatable returns whether the dimensions `to` can be refined into `from`:
// either `to` has unknown rank (empty), or both have the same rank and every
// concrete (non-zero) dimension of `to` equals the corresponding dimension of `from`.
func IsUpdatable(to, from []int) bool {
	if len(to) == 0 {
		return true
	}
	if len(to) != len(from) {
		return false
	}
	for axis, dim := range to {
		if dim != 0 && dim != from[axis] {
			return false
		}
	}
	return true
}

// Refine checks that override can refine base and returns the refined type.
//
// It fails if the dtypes or the tensor-ness differ, if base has a known rank and override
// a different one, or if override changes a concrete dimension of base.
func Refine(base, override OperandType) (OperandType, error) {
	if base.DType != override.DType || base.Tensor != override.Tensor {
		return OperandType{}, errors.Errorf("cannot override operand type %s with %s", base, override)
	}
	if len(base.Dimensions) == 0 {
		return override.Clone(), nil
	}
	if len(base.Dimensions) != len(override.Dimensions) {
		return OperandType{}, errors.Errorf("cannot override operand type %s with %s: incompatible rank", base, override)
	}
	for axis, dim := range base.Dimensions {
		if dim != 0 && dim != override.Dimensions[axis] {
			return OperandType{}, errors.Errorf(
				"cannot override operand type %s with %s: dimension of axis %d is already fixed to %d",
				base, override, axis, dim)
		}
	}
	return override.Clone(), nil
}
