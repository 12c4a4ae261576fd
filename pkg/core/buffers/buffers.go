// Package buffers converts between Go flat slices and the raw byte buffers that arguments are
// bound to.
//
// Buffers use the host native byte order: they are handed as-is to devices running on the host.
package buffers

import (
	"unsafe"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

// Number is the set of numeric types kernels are written for.
type Number interface {
	constraints.Integer | constraints.Float
}

// Element is the set of fixed-size element types that can be viewed from a buffer.
type Element interface {
	dtypes.Supported | Number
}

// FromFlat returns a new byte buffer with a copy of the values of flat.
func FromFlat[T Element](flat []T) []byte {
	if len(flat) == 0 {
		return []byte{}
	}
	var zero T
	size := len(flat) * int(unsafe.Sizeof(zero))
	buf := make([]byte, size)
	copy(buf, unsafe.Slice((*byte)(unsafe.Pointer(&flat[0])), size))
	return buf
}

// Alloc returns a zeroed buffer large enough for numElements of type T.
func Alloc[T Element](numElements int) []byte {
	var zero T
	return make([]byte, numElements*int(unsafe.Sizeof(zero)))
}

// View returns a slice of T backed by buf, without copying.
//
// The buffer length must be a multiple of the size of T, and buf must be suitably aligned
// for T, which is the case for buffers allocated by this package or by memory.NewHostPool.
func View[T Element](buf []byte) ([]T, error) {
	var zero T
	elementSize := int(unsafe.Sizeof(zero))
	if len(buf)%elementSize != 0 {
		return nil, errors.Errorf("buffer of %d bytes is not a multiple of %T size (%d bytes)",
			len(buf), zero, elementSize)
	}
	if len(buf) == 0 {
		return []T{}, nil
	}
	if uintptr(unsafe.Pointer(&buf[0]))%unsafe.Alignof(zero) != 0 {
		return nil, errors.Errorf("buffer is not aligned for %T", zero)
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&buf[0])), len(buf)/elementSize), nil
}

// ToFlat returns a copy of the contents of buf as a slice of T.
func ToFlat[T Element](buf []byte) ([]T, error) {
	view, err := View[T](buf)
	if err != nil {
		return nil, err
	}
	flat := make([]T, len(view))
	copy(flat, view)
	return flat, nil
}

// Float16FromFloat32 converts values to float16.
func Float16FromFloat32(values []float32) []float16.Float16 {
	converted := make([]float16.Float16, len(values))
	for ii, v := range values {
		converted[ii] = float16.Fromfloat32(v)
	}
	return converted
}

// Float32FromFloat16 converts values to float32.
func Float32FromFloat16(values []float16.Float16) []float32 {
	converted := make([]float32, len(values))
	for ii, v := range values {
		converted[ii] = v.Float32()
	}
	return converted
}
