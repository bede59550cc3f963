package vm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bietkhonhungvandi212/pagevm/internal/addrspace"
	"github.com/bietkhonhungvandi212/pagevm/internal/machine"
	"github.com/bietkhonhungvandi212/pagevm/internal/storage/file"
	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	mgr    *Manager
	mem    *machine.Memory
	frames *machine.FrameAllocator
	spaces *addrspace.Registry
	store  *recordingStore
	opts   util.Options
}

// recordingStore logs every transfer and can be told to fail reads.
type recordingStore struct {
	file.Store
	ops      []string
	failRead bool
}

var errInjected = errors.New("injected read failure")

func (r *recordingStore) ReadAt(buf []byte, off int64) error {
	if r.failRead {
		return errInjected
	}
	r.ops = append(r.ops, fmt.Sprintf("read %d", off))
	return r.Store.ReadAt(buf, off)
}

func (r *recordingStore) WriteAt(buf []byte, off int64) error {
	r.ops = append(r.ops, fmt.Sprintf("write %d", off))
	return r.Store.WriteAt(buf, off)
}

func (r *recordingStore) reset() { r.ops = nil }

func testOptions(t *testing.T, physPages, sectors int) util.Options {
	t.Helper()
	path, cleanup := util.CreateTempFile(t)
	t.Cleanup(cleanup)

	opts := util.DefaultOptions()
	opts.SwapPath = path
	opts.PhysPages = physPages
	opts.SwapSectors = sectors
	return opts
}

func newFixture(t *testing.T, physPages, sectors int) *fixture {
	t.Helper()
	opts := testOptions(t, physPages, sectors)

	sf, err := file.NewSwapFile(opts.SwapPath, sectors)
	require.NoError(t, err, "create swap file")

	f := &fixture{
		mem:    machine.NewMemory(physPages),
		frames: machine.NewFrameAllocator(physPages),
		spaces: addrspace.NewRegistry(),
		store:  &recordingStore{Store: sf},
		opts:   opts,
	}
	f.mgr, err = NewWithStore(opts, f.mem, f.frames, f.spaces, f.store)
	require.NoError(t, err, "create manager")
	t.Cleanup(func() { f.mgr.Destroy() })
	return f
}

// image returns numPages pages, page i filled with FillPattern(seed+i).
func image(seed byte, numPages int) []byte {
	buf := make([]byte, 0, numPages*util.PageSize)
	for i := 0; i < numPages; i++ {
		buf = append(buf, util.FillPattern(seed+byte(i))...)
	}
	return buf
}

// touch plays the MMU: faults the page in if needed, sets the use bit and,
// when data is given, stores it and sets the dirty bit. It returns the
// frame contents before the write.
func (f *fixture) touch(t *testing.T, as *addrspace.AddrSpace, pageIndex int, data []byte) []byte {
	t.Helper()
	entry, err := as.Entry(pageIndex)
	require.NoError(t, err)

	if !entry.IsValid() {
		require.NoError(t, f.mgr.SwapPageIn(as.ID(), pageIndex*util.PageSize), "fault space %d page %d", as.ID(), pageIndex)
	}
	require.True(t, entry.IsValid(), "page resident after fault")

	frame, err := f.mem.Frame(entry.PhysicalPage)
	require.NoError(t, err)
	before := append([]byte(nil), frame...)

	entry.SetUseFlag()
	if data != nil {
		copy(frame, data)
		entry.SetDirtyFlag()
	}
	return before
}

// assertConsistent checks that valid entries and the frame directory point
// at each other one to one.
func (f *fixture) assertConsistent(t *testing.T) {
	t.Helper()
	snapshot := f.mgr.Snapshot()
	holder := make(map[int]string)

	for _, id := range f.spaces.IDs() {
		as, _ := f.spaces.Lookup(id)
		for i := 0; i < as.NumPages(); i++ {
			e, _ := as.Entry(i)
			if !e.IsValid() {
				continue
			}
			key := fmt.Sprintf("%d/%d", id, i)
			prev, taken := holder[e.PhysicalPage]
			assert.False(t, taken, "frame %d held by %s and %s\n%s", e.PhysicalPage, prev, key, spew.Sdump(snapshot))
			holder[e.PhysicalPage] = key

			space, idx, ok := f.mgr.Owner(e.PhysicalPage)
			assert.True(t, ok, "frame %d of %s marked free", e.PhysicalPage, key)
			assert.Equal(t, id, space, "frame %d owner space", e.PhysicalPage)
			assert.Equal(t, i, idx, "frame %d owner page", e.PhysicalPage)
		}
	}

	for frameIdx, info := range snapshot {
		if info.IsFree() {
			assert.False(t, f.frames.InUse(frameIdx), "free directory frame %d still allocated", frameIdx)
			continue
		}
		assert.True(t, f.frames.InUse(frameIdx), "directory frame %d not allocated", frameIdx)
		_, ok := holder[frameIdx]
		assert.True(t, ok, "frame %d owner entry not valid\n%s", frameIdx, spew.Sdump(info))
	}
}
