package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostPool(t *testing.T) {
	pool := NewHostPool(64)
	assert.Equal(t, 64, pool.Size())
	assert.True(t, pool.AllowsSubRange())
	assert.True(t, pool.ValidateRange(0, 64))
	assert.True(t, pool.ValidateRange(32, 32))
	assert.True(t, pool.ValidateRange(64, 0))
	assert.False(t, pool.ValidateRange(33, 32))
	assert.False(t, pool.ValidateRange(-1, 2))
	assert.False(t, pool.ValidateRange(0, 65))

	data, ok := Resolve(pool, 8, 16)
	require.True(t, ok)
	assert.Len(t, data, 16)
	_, ok = Resolve(pool, 60, 16)
	assert.False(t, ok)
}

func TestHardwareBuffer(t *testing.T) {
	buf := NewHardwareBuffer(32)
	assert.False(t, buf.AllowsSubRange())
	assert.Equal(t, "hardware_buffer", buf.Name())
	data, ok := Resolve(buf, 0, 0)
	require.True(t, ok)
	assert.Len(t, data, 32)
}

func TestTable(t *testing.T) {
	table := NewTable()
	p0, p1 := NewHostPool(8), NewHostPool(8)
	assert.Equal(t, 0, table.Add(p0))
	assert.Equal(t, 1, table.Add(p1))
	assert.Equal(t, 0, table.Add(p0), "pools must be de-duplicated")
	assert.Equal(t, 2, table.Len())
	assert.Same(t, p1, table.Get(1))
	assert.Nil(t, table.Get(2))

	var zero Table
	assert.Equal(t, 0, zero.Add(p1))
}

// slicePool is a value-type Pool that can't be used as a map key.
type slicePool struct {
	data []byte
}

func (p slicePool) Name() string         { return "slice" }
func (p slicePool) Size() int            { return len(p.data) }
func (p slicePool) AllowsSubRange() bool { return true }
func (p slicePool) ValidateRange(offset, length int) bool {
	return offset >= 0 && length >= 0 && offset+length <= len(p.data)
}
func (p slicePool) Bytes() []byte { return p.data }

func TestTableNonComparablePools(t *testing.T) {
	table := NewTable()
	host := NewHostPool(8)
	pool := slicePool{data: make([]byte, 24)}
	require.NotPanics(t, func() {
		assert.Equal(t, 0, table.Add(host))
		assert.Equal(t, 1, table.Add(pool))
		assert.Equal(t, 2, table.Add(pool), "non-comparable pools are not de-duplicated")
		assert.Equal(t, 0, table.Add(host))
	})
	assert.Equal(t, 3, table.Len())
	data, ok := Resolve(table.Get(1), 8, 16)
	require.True(t, ok)
	assert.Len(t, data, 16)
}
