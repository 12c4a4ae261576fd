package reference

import (
	"slices"
	"sync"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/buffers"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Tensor is a value passed to and returned from kernels.
type Tensor struct {
	Type shapes.OperandType
	Data []byte
}

// Kernel computes the results of one operation.
//
// outputTypes are the declared types of the operation outputs, possibly with unspecified dimensions.
// The kernel returns one Tensor per output, with fully specified types. Inputs must not be modified.
// Kernels may panic with an error (see exceptions.Panicf): the device reports it as a general failure.
type Kernel func(inputs []Tensor, outputTypes []shapes.OperandType) ([]Tensor, error)

var (
	muKernels sync.RWMutex
	kernels   = make(map[string]Kernel)
)

// RegisterKernel registers the kernel for opType, replacing any previous one.
//
// Programs already prepared keep using the kernels they were prepared with.
func RegisterKernel(opType string, kernel Kernel) {
	muKernels.Lock()
	defer muKernels.Unlock()
	kernels[opType] = kernel
}

// LookupKernel returns the kernel registered for opType, or nil.
func LookupKernel(opType string) Kernel {
	muKernels.RLock()
	defer muKernels.RUnlock()
	return kernels[opType]
}

// OpTypes returns the sorted list of operation types with a registered kernel.
func OpTypes() []string {
	muKernels.RLock()
	defer muKernels.RUnlock()
	opTypes := make([]string, 0, len(kernels))
	for opType := range kernels {
		opTypes = append(opTypes, opType)
	}
	slices.Sort(opTypes)
	return opTypes
}

func init() {
	RegisterKernel("ADD", BinaryKernel("ADD", binaryTable(
		binaryFor(add[float32]), binaryFor(add[float64]), binaryFor(add[int32]), binaryFor(add[int64]),
		binaryFloat16(add[float32]))))
	RegisterKernel("SUB", BinaryKernel("SUB", binaryTable(
		binaryFor(sub[float32]), binaryFor(sub[float64]), binaryFor(sub[int32]), binaryFor(sub[int64]),
		binaryFloat16(sub[float32]))))
	RegisterKernel("MUL", BinaryKernel("MUL", binaryTable(
		binaryFor(mul[float32]), binaryFor(mul[float64]), binaryFor(mul[int32]), binaryFor(mul[int64]),
		binaryFloat16(mul[float32]))))
	RegisterKernel("RELU", UnaryKernel("RELU", unaryTable(
		unaryFor(relu[float32]), unaryFor(relu[float64]), unaryFor(relu[int32]), unaryFor(relu[int64]),
		unaryFloat16(relu[float32]))))
	RegisterKernel("NEG", UnaryKernel("NEG", unaryTable(
		unaryFor(neg[float32]), unaryFor(neg[float64]), unaryFor(neg[int32]), unaryFor(neg[int64]),
		unaryFloat16(neg[float32]))))
	RegisterKernel("CONCAT", concatKernel)
}

func add[T buffers.Number](x, y T) T { return x + y }
func sub[T buffers.Number](x, y T) T { return x - y }
func mul[T buffers.Number](x, y T) T { return x * y }
func neg[T buffers.Number](x T) T    { return -x }

func relu[T buffers.Number](x T) T {
	if x < 0 {
		return 0
	}
	return x
}

// BinaryFn computes an element-wise operation over two flat buffers of the same dtype.
type BinaryFn func(x, y []byte) ([]byte, error)

// UnaryFn computes an element-wise operation over a flat buffer.
type UnaryFn func(x []byte) ([]byte, error)

func binaryTable(f32, f64, i32, i64, f16 BinaryFn) map[dtypes.DType]BinaryFn {
	return map[dtypes.DType]BinaryFn{
		dtypes.Float32: f32, dtypes.Float64: f64, dtypes.Int32: i32, dtypes.Int64: i64, dtypes.Float16: f16,
	}
}

func unaryTable(f32, f64, i32, i64, f16 UnaryFn) map[dtypes.DType]UnaryFn {
	return map[dtypes.DType]UnaryFn{
		dtypes.Float32: f32, dtypes.Float64: f64, dtypes.Int32: i32, dtypes.Int64: i64, dtypes.Float16: f16,
	}
}

func binaryFor[T buffers.Number](op func(x, y T) T) BinaryFn {
	return func(x, y []byte) ([]byte, error) {
		xs, err := buffers.ToFlat[T](x)
		if err != nil {
			return nil, err
		}
		ys, err := buffers.ToFlat[T](y)
		if err != nil {
			return nil, err
		}
		for ii := range xs {
			xs[ii] = op(xs[ii], ys[ii])
		}
		return buffers.FromFlat(xs), nil
	}
}

func binaryFloat16(op func(x, y float32) float32) BinaryFn {
	return func(x, y []byte) ([]byte, error) {
		xs, err := buffers.ToFlat[float16.Float16](x)
		if err != nil {
			return nil, err
		}
		ys, err := buffers.ToFlat[float16.Float16](y)
		if err != nil {
			return nil, err
		}
		for ii := range xs {
			xs[ii] = float16.Fromfloat32(op(xs[ii].Float32(), ys[ii].Float32()))
		}
		return buffers.FromFlat(xs), nil
	}
}

func unaryFor[T buffers.Number](op func(x T) T) UnaryFn {
	return func(x []byte) ([]byte, error) {
		xs, err := buffers.ToFlat[T](x)
		if err != nil {
			return nil, err
		}
		for ii := range xs {
			xs[ii] = op(xs[ii])
		}
		return buffers.FromFlat(xs), nil
	}
}

func unaryFloat16(op func(x float32) float32) UnaryFn {
	return func(x []byte) ([]byte, error) {
		xs, err := buffers.ToFlat[float16.Float16](x)
		if err != nil {
			return nil, err
		}
		for ii := range xs {
			xs[ii] = float16.Fromfloat32(op(xs[ii].Float32()))
		}
		return buffers.FromFlat(xs), nil
	}
}

// BinaryKernel returns an element-wise kernel of two operands of the same type, using the
// implementation registered for the dtype of the operands.
func BinaryKernel(opType string, table map[dtypes.DType]BinaryFn) Kernel {
	return func(inputs []Tensor, outputTypes []shapes.OperandType) ([]Tensor, error) {
		if len(inputs) != 2 || len(outputTypes) != 1 {
			return nil, errors.Errorf("%s takes 2 inputs and 1 output, got %d inputs and %d outputs",
				opType, len(inputs), len(outputTypes))
		}
		x, y := inputs[0], inputs[1]
		if !x.Type.Equal(y.Type) {
			return nil, errors.Errorf("%s operands must have the same type, got %s and %s", opType, x.Type, y.Type)
		}
		fn := table[x.Type.DType]
		if fn == nil {
			return nil, errors.Errorf("%s not implemented for dtype %s", opType, x.Type.DType)
		}
		data, err := fn(x.Data, y.Data)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s", opType)
		}
		return []Tensor{{Type: x.Type.Clone(), Data: data}}, nil
	}
}

// UnaryKernel returns an element-wise kernel of one operand, using the implementation registered
// for its dtype.
func UnaryKernel(opType string, table map[dtypes.DType]UnaryFn) Kernel {
	return func(inputs []Tensor, outputTypes []shapes.OperandType) ([]Tensor, error) {
		if len(inputs) != 1 || len(outputTypes) != 1 {
			return nil, errors.Errorf("%s takes 1 input and 1 output, got %d inputs and %d outputs",
				opType, len(inputs), len(outputTypes))
		}
		x := inputs[0]
		fn := table[x.Type.DType]
		if fn == nil {
			return nil, errors.Errorf("%s not implemented for dtype %s", opType, x.Type.DType)
		}
		data, err := fn(x.Data)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s", opType)
		}
		return []Tensor{{Type: x.Type.Clone(), Data: data}}, nil
	}
}

// concatKernel concatenates its inputs along the first axis. The output leading dimension depends
// on the inputs, which makes it useful to produce dynamically shaped outputs.
func concatKernel(inputs []Tensor, outputTypes []shapes.OperandType) ([]Tensor, error) {
	if len(inputs) == 0 || len(outputTypes) != 1 {
		return nil, errors.Errorf("CONCAT takes at least 1 input and 1 output, got %d inputs and %d outputs",
			len(inputs), len(outputTypes))
	}
	first := inputs[0].Type
	if first.Rank() == 0 {
		return nil, errors.Errorf("CONCAT of scalars not supported, got %s", first)
	}
	result := first.Clone()
	result.Dimensions[0] = 0
	var data []byte
	for ii, input := range inputs {
		if input.Type.DType != first.DType || input.Type.Rank() != first.Rank() ||
			!slices.Equal(input.Type.Dimensions[1:], first.Dimensions[1:]) {
			return nil, errors.Errorf("CONCAT input #%d type %s is not compatible with %s", ii, input.Type, first)
		}
		result.Dimensions[0] += input.Type.Dimensions[0]
		data = append(data, input.Data...)
	}
	return []Tensor{{Type: result, Data: data}}, nil
}
