package swap

import (
	"testing"

	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestNewSectorMap(t *testing.T) {
	t.Run("ValidSize", func(t *testing.T) {
		sm := NewSectorMap(8)
		assert.Equal(t, 8, sm.Len())
		assert.Equal(t, 8, sm.Free())
		assert.Equal(t, 0, sm.InUse())
	})

	t.Run("ZeroSize", func(t *testing.T) {
		assert.Panics(t, func() { NewSectorMap(0) })
	})
}

func TestAllocate(t *testing.T) {
	t.Run("FirstFitAndScaled", func(t *testing.T) {
		sm := NewSectorMap(4)
		for i := 0; i < 4; i++ {
			off, err := sm.Allocate()
			assert.NoError(t, err, "allocate %d", i)
			assert.Equal(t, int64(i*util.PageSize), off, "offset of sector %d", i)
			assert.True(t, sm.IsAllocated(off))
		}
		assert.Equal(t, 0, sm.Free())
	})

	t.Run("ExhaustedIsFatal", func(t *testing.T) {
		sm := NewSectorMap(2)
		_, _ = sm.Allocate()
		_, _ = sm.Allocate()

		off, err := sm.Allocate()
		assert.ErrorIs(t, err, util.ErrSwapExhausted)
		assert.Equal(t, int64(-1), off, "no offset handed out")
		kind, ok := util.KindOf(err)
		assert.True(t, ok)
		assert.Equal(t, util.ErrKindExhausted, kind)
		assert.True(t, util.IsFatal(err))
	})

	t.Run("ReusesReleasedSector", func(t *testing.T) {
		sm := NewSectorMap(3)
		a, _ := sm.Allocate()
		b, _ := sm.Allocate()
		_, _ = sm.Allocate()

		assert.NoError(t, sm.Release(b))
		got, err := sm.Allocate()
		assert.NoError(t, err)
		assert.Equal(t, b, got, "lowest free sector is reused")
		assert.NotEqual(t, a, got)
	})
}

func TestRelease(t *testing.T) {
	sm := NewSectorMap(4)
	off, _ := sm.Allocate()

	assert.NoError(t, sm.Release(off))
	assert.False(t, sm.IsAllocated(off))

	err := sm.Release(off)
	assert.ErrorIs(t, err, util.ErrSectorNotAllocated, "double release detected")

	tests := []struct {
		name   string
		offset int64
	}{
		{"Negative", -util.PageSize},
		{"Misaligned", 3},
		{"PastEnd", 4 * util.PageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, sm.Release(tt.offset), util.ErrInvalidOffset)
			assert.False(t, sm.IsAllocated(tt.offset))
		})
	}
}
