package vm

import (
	"fmt"
	"log/slog"

	"github.com/bietkhonhungvandi212/pagevm/internal/addrspace"
	"github.com/bietkhonhungvandi212/pagevm/internal/machine"
	"github.com/bietkhonhungvandi212/pagevm/internal/storage/file"
	"github.com/bietkhonhungvandi212/pagevm/internal/storage/page"
	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
)

// FrameAllocator hands out physical frame numbers.
type FrameAllocator interface {
	ObtainAt(frameIdx int) error
	Release(frameIdx int) error
}

var _ FrameAllocator = (*machine.FrameAllocator)(nil)

// ClockReplacer picks the frame for a faulting page with the second chance
// algorithm. A pinned frame is passed over without touching its use bit.
type ClockReplacer struct {
	dir        *frameDirectory
	mem        *machine.Memory
	frames     FrameAllocator
	store      file.Store
	stats      *Stats
	log        *slog.Logger
	nextVictim int
	maxLoop    int
}

func (c *ClockReplacer) Init(dir *frameDirectory, mem *machine.Memory, frames FrameAllocator, store file.Store, maxLoop int, stats *Stats, log *slog.Logger) {
	c.dir = dir
	c.mem = mem
	c.frames = frames
	c.store = store
	c.maxLoop = maxLoop
	c.stats = stats
	c.log = log
	c.nextVictim = 0
}

// RequestFree claims a frame for (space, pageIndex), evicting the clock's
// victim when no free frame sits under the hand. The caller loads the page.
func (c *ClockReplacer) RequestFree(space addrspace.ID, pageIndex int) (int, error) {
	poolSize := c.dir.size()
	if c.nextVictim < 0 || c.nextVictim >= poolSize {
		return -1, util.NewVMError(util.ErrKindInvariant, "RequestFree",
			fmt.Sprintf("hand %d with %d frames", c.nextVictim, poolSize), util.ErrHandOutOfRange)
	}

	for i := 0; i < poolSize*c.maxLoop; i++ {
		victimIdx := c.nextVictim

		if c.dir.isFree(victimIdx) {
			return c.claimFree(victimIdx, space, pageIndex)
		}

		victim, err := c.dir.owningPageEntry(victimIdx)
		if err != nil {
			return -1, err
		}

		if victim.IsPinned() {
			c.advance()
			continue
		}

		if victim.IsUsed() {
			_ = victim.ClearUseFlag()
			c.stats.SecondChances++
			c.advance()
			continue
		}

		if err := c.evict(victimIdx, victim); err != nil {
			return -1, err
		}
		if err := c.dir.claim(victimIdx, space, pageIndex); err != nil {
			return -1, err
		}
		return victimIdx, nil
	}

	return -1, util.NewVMError(util.ErrKindExhausted, "RequestFree",
		fmt.Sprintf("no victim among %d frames after %d sweeps", poolSize, c.maxLoop), util.ErrNoVictim)
}

// claimFree takes the free frame under the hand. The allocator must agree
// that the frame is free.
func (c *ClockReplacer) claimFree(frameIdx int, space addrspace.ID, pageIndex int) (int, error) {
	if err := c.frames.ObtainAt(frameIdx); err != nil {
		return -1, fmt.Errorf("[clock] [RequestFree] obtain frame %d: %w", frameIdx, err)
	}
	if err := c.dir.claim(frameIdx, space, pageIndex); err != nil {
		_ = c.frames.Release(frameIdx)
		return -1, err
	}
	c.stats.FreeClaims++
	return frameIdx, nil
}

// evict writes the victim back if it is dirty, then drops its residency.
// The frame stays allocated; it is handed straight to the new owner.
func (c *ClockReplacer) evict(frameIdx int, victim *page.Entry) error {
	if victim.IsDirty() {
		buf, err := c.mem.Frame(frameIdx)
		if err != nil {
			return util.NewVMError(util.ErrKindInvariant, "Evict", "victim frame", err)
		}
		if err := c.store.WriteAt(buf, victim.SwapOffset); err != nil {
			return util.NewVMError(util.ErrKindIO, "Evict",
				fmt.Sprintf("write back frame %d to offset %d", frameIdx, victim.SwapOffset), err)
		}
		_ = victim.ClearDirtyFlag()
		c.stats.WriteBacks++
		c.log.Debug("wrote back dirty page", "frame", frameIdx, "page", victim.VirtualPage, "offset", victim.SwapOffset)
	}

	owner := c.dir.frames[frameIdx]
	victim.Invalidate()
	c.dir.clear(frameIdx)
	c.stats.Evictions++
	c.log.Debug("evicted page", "frame", frameIdx, "space", owner.Space, "page", owner.PageIndex)
	return nil
}

func (c *ClockReplacer) advance() {
	c.nextVictim = (c.nextVictim + 1) % c.dir.size()
}

// advancePast moves the hand to the frame after frameIdx.
func (c *ClockReplacer) advancePast(frameIdx int) {
	c.nextVictim = (frameIdx + 1) % c.dir.size()
}

func (c *ClockReplacer) Hand() int { return c.nextVictim }
