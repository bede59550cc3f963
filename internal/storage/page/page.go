package page

import (
	"fmt"

	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
)

const (
	FlagValid  uint16 = 1 << iota // resident in PhysicalPage
	FlagDirty                     // modified since loaded from swap
	FlagUse                       // referenced since the last clock sweep
	FlagPinned                    // must not be chosen as a victim
)

// Entry is one page table entry of an address space.
type Entry struct {
	VirtualPage  int
	PhysicalPage int   // meaningful only while valid
	SwapOffset   int64 // backing sector, fixed for the page's lifetime
	Flags        uint16
}

// NewEntry returns a non-resident entry backed by swapOffset.
func NewEntry(virtualPage int, swapOffset int64) Entry {
	return Entry{
		VirtualPage:  virtualPage,
		PhysicalPage: -1,
		SwapOffset:   swapOffset,
	}
}

func (e *Entry) String() string {
	return fmt.Sprintf("vpn=%d ppn=%d swap=%d valid=%t dirty=%t use=%t pinned=%t",
		e.VirtualPage, e.PhysicalPage, e.SwapOffset, e.IsValid(), e.IsDirty(), e.IsUsed(), e.IsPinned())
}

// SwapSector returns the index of the backing sector.
func (e *Entry) SwapSector() int {
	return int(e.SwapOffset / util.SectorSize)
}

/* VALID */
func (e *Entry) IsValid() bool { return e.Flags&FlagValid != 0 }

func (e *Entry) SetValidFlag() { e.Flags |= FlagValid }

func (e *Entry) ClearValidFlag() error {
	if !e.IsValid() {
		return util.ErrPageNotValid
	}
	e.Flags &^= FlagValid
	return nil
}

/* DIRTY */
func (e *Entry) IsDirty() bool { return e.Flags&FlagDirty != 0 }

func (e *Entry) SetDirtyFlag() { e.Flags |= FlagDirty }

func (e *Entry) ClearDirtyFlag() error {
	if !e.IsDirty() {
		return util.ErrPageNotDirty
	}
	e.Flags &^= FlagDirty
	return nil
}

/* USE */
func (e *Entry) IsUsed() bool { return e.Flags&FlagUse != 0 }

func (e *Entry) SetUseFlag() { e.Flags |= FlagUse }

func (e *Entry) ClearUseFlag() error {
	if !e.IsUsed() {
		return util.ErrPageNotUsed
	}
	e.Flags &^= FlagUse
	return nil
}

/* PINNED */
func (e *Entry) IsPinned() bool { return e.Flags&FlagPinned != 0 }

func (e *Entry) SetPinnedFlag() error {
	if e.IsPinned() {
		return util.ErrPageAlreadyPinned
	}
	e.Flags |= FlagPinned
	return nil
}

func (e *Entry) ClearPinnedFlag() error {
	if !e.IsPinned() {
		return util.ErrPageNotPinned
	}
	e.Flags &^= FlagPinned
	return nil
}

// Invalidate drops residency and every per-residency bit.
func (e *Entry) Invalidate() {
	e.Flags = 0
	e.PhysicalPage = -1
}
