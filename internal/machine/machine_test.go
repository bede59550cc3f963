package machine

import (
	"testing"

	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestMemoryFrame(t *testing.T) {
	mem := NewMemory(3)
	assert.Equal(t, 3, mem.NumFrames())

	f1, err := mem.Frame(1)
	assert.NoError(t, err)
	assert.Len(t, f1, util.PageSize)
	copy(f1, util.FillPattern(9))

	again, _ := mem.Frame(1)
	assert.Equal(t, util.FillPattern(9), again, "frame slice aliases memory")

	f0, _ := mem.Frame(0)
	assert.Equal(t, make([]byte, util.PageSize), f0, "neighbour untouched")

	_, err = mem.Frame(3)
	assert.ErrorIs(t, err, util.ErrOutBoundOfFrame)
	_, err = mem.Frame(-1)
	assert.ErrorIs(t, err, util.ErrOutBoundOfFrame)

	assert.Panics(t, func() { NewMemory(0) })
}

func TestFrameAllocator(t *testing.T) {
	t.Run("AllocateAll", func(t *testing.T) {
		fa := NewFrameAllocator(4)
		for i := 0; i < 4; i++ {
			idx, err := fa.Obtain()
			assert.NoError(t, err)
			assert.Equal(t, i, idx, "alloc index")
			assert.True(t, fa.InUse(idx))
		}
		assert.Equal(t, 0, fa.Free())

		idx, err := fa.Obtain()
		assert.Equal(t, -1, idx)
		assert.ErrorIs(t, err, util.ErrNoFreeFrame)
		assert.True(t, util.IsFatal(err), "global frame exhaustion is fatal")
	})

	t.Run("ReleaseIsLIFO", func(t *testing.T) {
		fa := NewFrameAllocator(3)
		for i := 0; i < 3; i++ {
			_, _ = fa.Obtain()
		}
		assert.NoError(t, fa.Release(0))
		assert.NoError(t, fa.Release(2))
		assert.Equal(t, 2, fa.Free())

		idx, _ := fa.Obtain()
		assert.Equal(t, 2, idx, "last released comes back first")
		idx, _ = fa.Obtain()
		assert.Equal(t, 0, idx)
	})

	t.Run("BadRelease", func(t *testing.T) {
		fa := NewFrameAllocator(2)
		assert.ErrorIs(t, fa.Release(0), util.ErrFrameNotAllocated, "never obtained")
		assert.ErrorIs(t, fa.Release(5), util.ErrOutBoundOfFrame)

		idx, _ := fa.Obtain()
		assert.NoError(t, fa.Release(idx))
		assert.ErrorIs(t, fa.Release(idx), util.ErrFrameNotAllocated, "double release")
		assert.Equal(t, 2, fa.Free(), "free count unaffected by rejected release")
	})

	t.Run("ObtainAtSpecificFrame", func(t *testing.T) {
		fa := NewFrameAllocator(4)
		for i := 0; i < 4; i++ {
			_, _ = fa.Obtain()
		}
		assert.NoError(t, fa.Release(1))
		assert.NoError(t, fa.Release(3)) // free list: 3 -> 1

		assert.NoError(t, fa.ObtainAt(1), "frame behind the head")
		assert.True(t, fa.InUse(1))
		assert.Equal(t, 1, fa.Free())
		assert.ErrorIs(t, fa.ObtainAt(1), util.ErrFrameInUse)

		idx, err := fa.Obtain()
		assert.NoError(t, err)
		assert.Equal(t, 3, idx, "list still links the remaining frame")

		assert.ErrorIs(t, fa.ObtainAt(0), util.ErrNoFreeFrame)
		assert.ErrorIs(t, fa.ObtainAt(4), util.ErrOutBoundOfFrame)
	})

	t.Run("ObtainAtHead", func(t *testing.T) {
		fa := NewFrameAllocator(3)
		assert.NoError(t, fa.ObtainAt(0))
		assert.NoError(t, fa.ObtainAt(2))

		idx, err := fa.Obtain()
		assert.NoError(t, err)
		assert.Equal(t, 1, idx)
		assert.Equal(t, 0, fa.Free())
	})

	t.Run("ZeroSize", func(t *testing.T) {
		assert.Panics(t, func() { NewFrameAllocator(0) })
	})
}
