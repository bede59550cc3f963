package vm

import (
	"fmt"

	"github.com/bietkhonhungvandi212/pagevm/internal/addrspace"
	"github.com/bietkhonhungvandi212/pagevm/internal/storage/page"
	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
)

// FrameInfo records which page occupies a physical frame.
type FrameInfo struct {
	Space     addrspace.ID // addrspace.NoSpace when the frame is free
	PageIndex int
}

func (fi FrameInfo) IsFree() bool { return fi.Space == addrspace.NoSpace }

// frameDirectory is the reverse map from frame number to page table entry.
type frameDirectory struct {
	frames []FrameInfo
	spaces *addrspace.Registry
}

func newFrameDirectory(size int, spaces *addrspace.Registry) *frameDirectory {
	if size <= 0 {
		panic(util.ErrInvalidPoolSize)
	}
	return &frameDirectory{
		frames: make([]FrameInfo, size),
		spaces: spaces,
	}
}

func (fd *frameDirectory) size() int { return len(fd.frames) }

func (fd *frameDirectory) isFree(frameIdx int) bool {
	return fd.frames[frameIdx].IsFree()
}

func (fd *frameDirectory) claim(frameIdx int, space addrspace.ID, pageIndex int) error {
	if frameIdx < 0 || frameIdx >= len(fd.frames) {
		return util.NewVMError(util.ErrKindInvariant, "ClaimFrame",
			fmt.Sprintf("frame %d of %d", frameIdx, len(fd.frames)), util.ErrOutBoundOfFrame)
	}
	if cur := fd.frames[frameIdx]; !cur.IsFree() {
		return util.NewVMError(util.ErrKindInvariant, "ClaimFrame",
			fmt.Sprintf("frame %d still held by space %d page %d", frameIdx, cur.Space, cur.PageIndex), util.ErrFrameInUse)
	}
	fd.frames[frameIdx] = FrameInfo{Space: space, PageIndex: pageIndex}
	return nil
}

func (fd *frameDirectory) clear(frameIdx int) {
	fd.frames[frameIdx] = FrameInfo{}
}

// owningPageEntry resolves the page table entry held in frameIdx and checks
// that it points back at the frame.
func (fd *frameDirectory) owningPageEntry(frameIdx int) (*page.Entry, error) {
	info := fd.frames[frameIdx]
	if info.IsFree() {
		return nil, util.NewVMError(util.ErrKindInvariant, "OwningPageEntry",
			fmt.Sprintf("frame %d is free", frameIdx), util.ErrFrameNotOwned)
	}

	as, ok := fd.spaces.Lookup(info.Space)
	if !ok {
		return nil, util.NewVMError(util.ErrKindInvariant, "OwningPageEntry",
			fmt.Sprintf("frame %d refers to destroyed space %d", frameIdx, info.Space), util.ErrUnknownSpace)
	}

	entry, err := as.Entry(info.PageIndex)
	if err != nil {
		return nil, util.NewVMError(util.ErrKindInvariant, "OwningPageEntry",
			fmt.Sprintf("frame %d", frameIdx), err)
	}

	if !entry.IsValid() || entry.PhysicalPage != frameIdx {
		return nil, util.NewVMError(util.ErrKindInvariant, "OwningPageEntry",
			fmt.Sprintf("frame %d owner entry is %s", frameIdx, entry), util.ErrDirectoryMismatch)
	}
	return entry, nil
}
