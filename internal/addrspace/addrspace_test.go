package addrspace

import (
	"testing"

	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreate(t *testing.T) {
	r := NewRegistry()

	a, err := r.Create([]int64{0, util.PageSize})
	require.NoError(t, err)
	b, err := r.Create([]int64{2 * util.PageSize})
	require.NoError(t, err)

	assert.NotEqual(t, NoSpace, a.ID(), "zero id is reserved")
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, r.Len())
	assert.ElementsMatch(t, []ID{a.ID(), b.ID()}, r.IDs())

	e, err := a.Entry(1)
	require.NoError(t, err)
	assert.Equal(t, 1, e.VirtualPage)
	assert.Equal(t, int64(util.PageSize), e.SwapOffset)
	assert.False(t, e.IsValid(), "pages start non-resident")

	_, err = r.Create(nil)
	assert.ErrorIs(t, err, util.ErrInvalidPoolSize)
}

func TestEntryIsMutableInPlace(t *testing.T) {
	r := NewRegistry()
	as, _ := r.Create([]int64{0})

	e, _ := as.Entry(0)
	e.SetDirtyFlag()

	again, _ := as.Entry(0)
	assert.True(t, again.IsDirty())
}

func TestAddressTranslation(t *testing.T) {
	r := NewRegistry()
	as, _ := r.Create([]int64{0, util.PageSize, 2 * util.PageSize})

	tests := []struct {
		addr    int
		want    int
		wantErr bool
	}{
		{0, 0, false},
		{util.PageSize - 1, 0, false},
		{util.PageSize, 1, false},
		{3*util.PageSize - 1, 2, false},
		{3 * util.PageSize, -1, true},
		{-1, -1, true},
	}
	for _, tt := range tests {
		idx, err := as.PageIndex(tt.addr)
		assert.Equal(t, tt.want, idx, "addr %d", tt.addr)
		if tt.wantErr {
			assert.ErrorIs(t, err, util.ErrAddressOutOfRange)
		} else {
			assert.NoError(t, err)
		}
	}

	_, err := as.Entry(3)
	assert.ErrorIs(t, err, util.ErrAddressOutOfRange)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	as, _ := r.Create([]int64{0})
	r.Remove(as.ID())

	_, ok := r.Lookup(as.ID())
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())

	next, _ := r.Create([]int64{0})
	assert.NotEqual(t, as.ID(), next.ID(), "ids are not reused")
}
