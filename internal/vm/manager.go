// Package vm implements demand paging: the frame directory, the clock
// page replacement engine and the Manager that owns them together with the
// swap area.
package vm

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bietkhonhungvandi212/pagevm/internal/addrspace"
	"github.com/bietkhonhungvandi212/pagevm/internal/machine"
	"github.com/bietkhonhungvandi212/pagevm/internal/storage/file"
	"github.com/bietkhonhungvandi212/pagevm/internal/storage/page"
	"github.com/bietkhonhungvandi212/pagevm/internal/storage/swap"
	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
)

// ExecutionContext reports the address space of the running thread.
type ExecutionContext interface {
	CurrentSpace() addrspace.ID
}

// RunningSpace is an ExecutionContext fixed to one address space.
type RunningSpace addrspace.ID

func (r RunningSpace) CurrentSpace() addrspace.ID { return addrspace.ID(r) }

// Stats counts what the manager has done since construction.
type Stats struct {
	Faults        int // faults on non-resident pages
	FreeClaims    int
	Evictions     int
	WriteBacks    int
	PageIns       int
	SecondChances int
}

// Manager owns physical frame bookkeeping and the swap area. Every public
// method holds mu for its whole duration, so a fault is serviced to
// completion before teardown or another fault can observe the frames.
type Manager struct {
	mu       sync.Mutex
	mem      *machine.Memory
	frames   FrameAllocator
	spaces   *addrspace.Registry
	store    file.Store
	sectors  *swap.SectorMap
	dir      *frameDirectory
	replacer *ClockReplacer
	stats    Stats
	log      *slog.Logger
	closed   bool
}

// New creates the swap file named by opts.SwapPath and a manager over mem.
func New(opts util.Options, mem *machine.Memory, frames FrameAllocator, spaces *addrspace.Registry) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("[vm] [New] options: %w", err)
	}

	store, err := file.NewSwapFile(opts.SwapPath, opts.SwapSectors)
	if err != nil {
		return nil, util.NewVMError(util.ErrKindIO, "New", "create swap area", err)
	}

	m, err := NewWithStore(opts, mem, frames, spaces, store)
	if err != nil {
		_ = store.Remove()
		return nil, err
	}
	return m, nil
}

// NewWithStore builds a manager on an already opened store.
func NewWithStore(opts util.Options, mem *machine.Memory, frames FrameAllocator, spaces *addrspace.Registry, store file.Store) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("[vm] [New] options: %w", err)
	}
	if mem == nil || frames == nil || spaces == nil || store == nil {
		return nil, errors.New("[vm] [New] memory, frame allocator, registry and store are required")
	}
	if mem.NumFrames() != opts.PhysPages {
		return nil, fmt.Errorf("[vm] [New] memory has %d frames, phys_pages is %d: %w",
			mem.NumFrames(), opts.PhysPages, util.ErrInvalidPoolSize)
	}
	if need := int64(opts.SwapSectors) * util.SectorSize; store.Size() < need {
		return nil, fmt.Errorf("[vm] [New] store holds %d bytes, need %d: %w", store.Size(), need, util.ErrPageOutOfBounds)
	}

	m := &Manager{
		mem:     mem,
		frames:  frames,
		spaces:  spaces,
		store:   store,
		sectors: swap.NewSectorMap(opts.SwapSectors),
		dir:     newFrameDirectory(mem.NumFrames(), spaces),
		log:     slog.Default().With("component", "vm"),
	}
	m.replacer = &ClockReplacer{}
	m.replacer.Init(m.dir, mem, frames, store, opts.MaxLoop, &m.stats, m.log)

	m.log.Debug("virtual memory ready", "frames", mem.NumFrames(), "swap_sectors", opts.SwapSectors)
	return m, nil
}

// Destroy removes the swap area. Outstanding frames and sectors are not
// checked; callers release their address spaces first.
func (m *Manager) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	err := m.store.Remove()
	m.dir = nil
	m.sectors = nil
	m.replacer = nil
	if err != nil {
		return util.NewVMError(util.ErrKindIO, "Destroy", "remove swap area", err)
	}
	return nil
}

/* PAGE FAULT */

// HandlePageFault services a fault on virtAddr in the running address space.
func (m *Manager) HandlePageFault(ctx ExecutionContext, virtAddr int) error {
	space := ctx.CurrentSpace()
	err := m.SwapPageIn(space, virtAddr)
	if err != nil && util.IsFatal(err) {
		m.log.Error("page fault is fatal", "space", space, "addr", virtAddr, "error", err)
	}
	return err
}

// SwapPageIn makes the page holding virtAddr resident in space. A fault on a
// page that is already resident does nothing.
func (m *Manager) SwapPageIn(space addrspace.ID, virtAddr int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return util.ErrManagerClosed
	}

	as, ok := m.spaces.Lookup(space)
	if !ok {
		return util.NewVMError(util.ErrKindInvalid, "SwapPageIn", fmt.Sprintf("space %d", space), util.ErrUnknownSpace)
	}
	pageIndex, err := as.PageIndex(virtAddr)
	if err != nil {
		return err
	}
	entry, err := as.Entry(pageIndex)
	if err != nil {
		return err
	}

	if entry.IsValid() {
		return nil
	}
	m.stats.Faults++

	frameIdx, err := m.replacer.RequestFree(space, pageIndex)
	if err != nil {
		return fmt.Errorf("[vm] [SwapPageIn] space %d page %d: %w", space, pageIndex, err)
	}

	if err := m.loadPage(frameIdx, entry); err != nil {
		m.dir.clear(frameIdx)
		_ = m.frames.Release(frameIdx)
		return fmt.Errorf("[vm] [SwapPageIn] space %d page %d: %w", space, pageIndex, err)
	}

	m.replacer.advancePast(frameIdx)
	return nil
}

// loadPage reads the page's sector into frameIdx and only then marks the
// entry valid.
func (m *Manager) loadPage(frameIdx int, entry *page.Entry) error {
	buf, err := m.mem.Frame(frameIdx)
	if err != nil {
		return util.NewVMError(util.ErrKindInvariant, "LoadPage", "claimed frame", err)
	}
	if err := m.store.ReadAt(buf, entry.SwapOffset); err != nil {
		return util.NewVMError(util.ErrKindIO, "LoadPage",
			fmt.Sprintf("read offset %d into frame %d", entry.SwapOffset, frameIdx), err)
	}

	entry.PhysicalPage = frameIdx
	entry.Flags &^= page.FlagDirty
	entry.SetUseFlag()
	entry.SetValidFlag()
	m.stats.PageIns++
	return nil
}

/* ADDRESS SPACES */

// NewAddrSpace registers a space of numPages pages. Each page gets its own
// swap sector for life and the sector is filled from image, zero padded.
// No page is resident afterwards.
func (m *Manager) NewAddrSpace(numPages int, image []byte) (*addrspace.AddrSpace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, util.ErrManagerClosed
	}
	if numPages <= 0 || len(image) > numPages*util.PageSize {
		return nil, util.NewVMError(util.ErrKindInvalid, "NewAddrSpace",
			fmt.Sprintf("%d pages for a %d byte image", numPages, len(image)), util.ErrInvalidPageSize)
	}

	offsets := make([]int64, 0, numPages)
	rollback := func() {
		for _, off := range offsets {
			_ = m.sectors.Release(off)
		}
	}

	buf := make([]byte, util.PageSize)
	for i := 0; i < numPages; i++ {
		off, err := m.sectors.Allocate()
		if err != nil {
			rollback()
			m.log.Error("swap space exhausted", "pages", numPages, "free", m.sectors.Free())
			return nil, fmt.Errorf("[vm] [NewAddrSpace] page %d: %w", i, err)
		}
		offsets = append(offsets, off)

		clear(buf)
		if start := i * util.PageSize; start < len(image) {
			copy(buf, image[start:])
		}
		if err := m.store.WriteAt(buf, off); err != nil {
			rollback()
			return nil, util.NewVMError(util.ErrKindIO, "NewAddrSpace", fmt.Sprintf("initialise page %d", i), err)
		}
	}

	as, err := m.spaces.Create(offsets)
	if err != nil {
		rollback()
		return nil, err
	}
	m.log.Debug("address space created", "space", as.ID(), "pages", numPages)
	return as, nil
}

// ReleasePages frees every frame and swap sector held by space and removes
// it from the registry. It must run once, after space stops being scheduled.
func (m *Manager) ReleasePages(space addrspace.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return util.ErrManagerClosed
	}

	as, ok := m.spaces.Lookup(space)
	if !ok {
		return util.NewVMError(util.ErrKindInvariant, "ReleasePages", fmt.Sprintf("space %d", space), util.ErrUnknownSpace)
	}

	var errs error
	for i := 0; i < as.NumPages(); i++ {
		entry, _ := as.Entry(i)

		if entry.IsValid() {
			frameIdx := entry.PhysicalPage
			if owner, err := m.dir.owningPageEntry(frameIdx); err != nil || owner != entry {
				errs = errors.Join(errs, fmt.Errorf("[vm] [ReleasePages] space %d page %d frame %d: %w",
					space, i, frameIdx, util.ErrDirectoryMismatch))
			} else {
				m.dir.clear(frameIdx)
				if err := m.frames.Release(frameIdx); err != nil {
					errs = errors.Join(errs, err)
				}
				m.log.Debug("released frame", "space", space, "page", entry.VirtualPage, "frame", frameIdx)
			}
			entry.Invalidate()
		}

		if err := m.sectors.Release(entry.SwapOffset); err != nil {
			errs = errors.Join(errs, err)
		}
	}

	m.spaces.Remove(space)
	return errs
}

// Pin keeps a resident page from being chosen as a victim.
func (m *Manager) Pin(space addrspace.ID, pageIndex int) error {
	return m.withResident(space, pageIndex, "Pin", func(e *page.Entry) error {
		return e.SetPinnedFlag()
	})
}

func (m *Manager) Unpin(space addrspace.ID, pageIndex int) error {
	return m.withResident(space, pageIndex, "Unpin", func(e *page.Entry) error {
		return e.ClearPinnedFlag()
	})
}

func (m *Manager) withResident(space addrspace.ID, pageIndex int, op string, fn func(*page.Entry) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return util.ErrManagerClosed
	}
	as, ok := m.spaces.Lookup(space)
	if !ok {
		return util.NewVMError(util.ErrKindInvalid, op, fmt.Sprintf("space %d", space), util.ErrUnknownSpace)
	}
	entry, err := as.Entry(pageIndex)
	if err != nil {
		return err
	}
	if !entry.IsValid() {
		return util.NewVMError(util.ErrKindInvalid, op, fmt.Sprintf("space %d page %d", space, pageIndex), util.ErrPageNotValid)
	}
	return fn(entry)
}

/* SWAP MAINTENANCE */

// AllocSwapSector reserves a sector and returns its byte offset.
func (m *Manager) AllocSwapSector() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return -1, util.ErrManagerClosed
	}
	off, err := m.sectors.Allocate()
	if err != nil {
		m.log.Error("swap space exhausted", "sectors", m.sectors.Len())
		return -1, err
	}
	return off, nil
}

func (m *Manager) ReleaseSwapSector(off int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return util.ErrManagerClosed
	}
	return m.sectors.Release(off)
}

// CopySwapSector copies the sector at from over the sector at to. Frames and
// page tables are not touched.
func (m *Manager) CopySwapSector(to, from int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return util.ErrManagerClosed
	}
	if err := m.store.CopySector(to, from); err != nil {
		return util.NewVMError(util.ErrKindIO, "CopySwapSector", fmt.Sprintf("%d -> %d", from, to), err)
	}
	return nil
}

func (m *Manager) WriteSwap(buf []byte, off int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return util.ErrManagerClosed
	}
	if err := m.store.WriteAt(buf, off); err != nil {
		return util.NewVMError(util.ErrKindIO, "WriteSwap", fmt.Sprintf("offset %d", off), err)
	}
	return nil
}

func (m *Manager) ReadSwap(buf []byte, off int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return util.ErrManagerClosed
	}
	if err := m.store.ReadAt(buf, off); err != nil {
		return util.NewVMError(util.ErrKindIO, "ReadSwap", fmt.Sprintf("offset %d", off), err)
	}
	return nil
}

/* INSPECTION */

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Hand returns the frame the next fault starts scanning from.
func (m *Manager) Hand() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replacer == nil {
		return -1
	}
	return m.replacer.Hand()
}

// Owner reports which page occupies frameIdx.
func (m *Manager) Owner(frameIdx int) (addrspace.ID, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dir == nil || frameIdx < 0 || frameIdx >= m.dir.size() {
		return addrspace.NoSpace, -1, false
	}
	info := m.dir.frames[frameIdx]
	if info.IsFree() {
		return addrspace.NoSpace, -1, false
	}
	return info.Space, info.PageIndex, true
}

// Snapshot copies the frame directory.
func (m *Manager) Snapshot() []FrameInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dir == nil {
		return nil
	}
	return append([]FrameInfo(nil), m.dir.frames...)
}

// FreeSwapSectors returns how many sectors are unallocated.
func (m *Manager) FreeSwapSectors() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sectors == nil {
		return 0
	}
	return m.sectors.Free()
}
