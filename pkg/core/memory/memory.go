// Package memory defines the memory pools that input and output arguments can be bound to, and
// the Table that references them by index.
//
// Pools are never mutated by the runtime: they are only validated and indexed. Devices read and
// write their contents through the Mappable interface.
package memory

import (
	"fmt"
	"reflect"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Pool is a registered memory region referenced by index rather than by address.
type Pool interface {
	// Name identifies the kind of pool, e.g. "host" or "hardware_buffer".
	Name() string

	// Size in bytes.
	Size() int

	// ValidateRange returns whether [offset, offset+length) is within the pool.
	ValidateRange(offset, length int) bool

	// AllowsSubRange returns false for pools that can only be bound as a whole: both offset and length
	// must be 0 when binding them.
	AllowsSubRange() bool
}

// Mappable is a Pool whose contents are visible to the host.
type Mappable interface {
	Pool

	// Bytes returns the contents of the pool. It must not be retained after the execution finishes.
	Bytes() []byte
}

// HostPool is a Pool backed by host memory.
type HostPool struct {
	id   string
	data []byte
}

var _ Mappable = (*HostPool)(nil)

// NewHostPool allocates a zeroed HostPool of the given size.
func NewHostPool(size int) *HostPool {
	return WrapHostPool(make([]byte, size))
}

// WrapHostPool returns a HostPool using data as its storage.
func WrapHostPool(data []byte) *HostPool {
	return &HostPool{id: uuid.NewString(), data: data}
}

// Name implements Pool.
func (p *HostPool) Name() string { return "host" }

// Size implements Pool.
func (p *HostPool) Size() int { return len(p.data) }

// ValidateRange implements Pool.
func (p *HostPool) ValidateRange(offset, length int) bool {
	return validateRange(len(p.data), offset, length)
}

// AllowsSubRange implements Pool.
func (p *HostPool) AllowsSubRange() bool { return true }

// Bytes implements Mappable.
func (p *HostPool) Bytes() []byte { return p.data }

// String implements fmt.Stringer.
func (p *HostPool) String() string {
	return fmt.Sprintf("HostPool(%s, %s)", p.id[:8], humanize.Bytes(uint64(len(p.data))))
}

// HardwareBuffer is a host-visible Pool that can only be bound as a whole, like buffers
// whose layout is opaque to the runtime.
type HardwareBuffer struct {
	HostPool
}

var _ Mappable = (*HardwareBuffer)(nil)

// NewHardwareBuffer allocates a zeroed HardwareBuffer of the given size.
func NewHardwareBuffer(size int) *HardwareBuffer {
	return &HardwareBuffer{HostPool: *NewHostPool(size)}
}

// Name implements Pool.
func (p *HardwareBuffer) Name() string { return "hardware_buffer" }

// AllowsSubRange implements Pool.
func (p *HardwareBuffer) AllowsSubRange() bool { return false }

// String implements fmt.Stringer.
func (p *HardwareBuffer) String() string {
	return fmt.Sprintf("HardwareBuffer(%s, %s)", p.id[:8], humanize.Bytes(uint64(len(p.data))))
}

func validateRange(size, offset, length int) bool {
	if offset < 0 || length < 0 {
		return false
	}
	return offset <= size && length <= size-offset
}

// Resolve returns the bytes of pool addressed by offset and length.
// A length of 0 on a pool that doesn't allow sub-ranges means the whole pool.
// It returns false if the pool is not Mappable or the range is invalid.
func Resolve(pool Pool, offset, length int) ([]byte, bool) {
	mappable, ok := pool.(Mappable)
	if !ok {
		return nil, false
	}
	data := mappable.Bytes()
	if !pool.AllowsSubRange() && offset == 0 && length == 0 {
		return data, true
	}
	if !pool.ValidateRange(offset, length) {
		return nil, false
	}
	return data[offset : offset+length], true
}

// Table is an append-only, de-duplicated, ordered collection of pools.
// The index returned by Add is stable and can be used in later lookups.
//
// Pools are de-duplicated by equality. Pools whose dynamic type is not comparable are never
// de-duplicated.
type Table struct {
	pools []Pool
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{}
}

// Add registers pool, if not yet present, and returns its index.
func (t *Table) Add(pool Pool) int {
	if reflect.TypeOf(pool).Comparable() {
		for idx, registered := range t.pools {
			// Interfaces holding different dynamic types compare unequal without panicking.
			if registered == pool {
				return idx
			}
		}
	}
	t.pools = append(t.pools, pool)
	return len(t.pools) - 1
}

// Get returns the pool at index, or nil if out of range.
func (t *Table) Get(index int) Pool {
	if index < 0 || index >= len(t.pools) {
		return nil
	}
	return t.pools[index]
}

// Len returns the number of registered pools.
func (t *Table) Len() int {
	return len(t.pools)
}
