package machine

import (
	"fmt"

	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
)

// FrameAllocator is a free list over physical frame numbers.
type FrameAllocator struct {
	nextFree []int  // Free list links
	inUse    []bool // Guards against double release
	freeHead int    // Head of free list
	free     int
	size     int
}

func NewFrameAllocator(size int) *FrameAllocator {
	if size <= 0 {
		panic(util.ErrInvalidPoolSize)
	}
	fa := &FrameAllocator{
		nextFree: make([]int, size),
		inUse:    make([]bool, size),
		freeHead: 0,
		free:     size,
		size:     size,
	}
	for i := 0; i < size; i++ {
		fa.nextFree[i] = i + 1
	}
	fa.nextFree[size-1] = -1
	return fa
}

// Obtain takes the frame at the head of the free list.
func (fa *FrameAllocator) Obtain() (int, error) {
	if fa.freeHead == -1 {
		return -1, util.NewVMError(util.ErrKindExhausted, "ObtainFrame",
			fmt.Sprintf("all %d physical frames in use", fa.size), util.ErrNoFreeFrame)
	}
	freeIdx := fa.freeHead
	fa.freeHead = fa.nextFree[freeIdx]
	fa.nextFree[freeIdx] = -1
	fa.inUse[freeIdx] = true
	fa.free--
	return freeIdx, nil
}

// ObtainAt takes frameIdx itself off the free list.
func (fa *FrameAllocator) ObtainAt(frameIdx int) error {
	if frameIdx < 0 || frameIdx >= fa.size {
		return util.NewVMError(util.ErrKindInvalid, "ObtainFrame",
			fmt.Sprintf("frame %d of %d", frameIdx, fa.size), util.ErrOutBoundOfFrame)
	}
	if fa.freeHead == -1 {
		return util.NewVMError(util.ErrKindExhausted, "ObtainFrame",
			fmt.Sprintf("all %d physical frames in use", fa.size), util.ErrNoFreeFrame)
	}
	if fa.inUse[frameIdx] {
		return util.NewVMError(util.ErrKindInvariant, "ObtainFrame",
			fmt.Sprintf("frame %d is already allocated", frameIdx), util.ErrFrameInUse)
	}

	if fa.freeHead == frameIdx {
		fa.freeHead = fa.nextFree[frameIdx]
	} else {
		prev := fa.freeHead
		for fa.nextFree[prev] != frameIdx {
			prev = fa.nextFree[prev]
		}
		fa.nextFree[prev] = fa.nextFree[frameIdx]
	}
	fa.nextFree[frameIdx] = -1
	fa.inUse[frameIdx] = true
	fa.free--
	return nil
}

// Release returns a frame to the head of the free list.
func (fa *FrameAllocator) Release(frameIdx int) error {
	if frameIdx < 0 || frameIdx >= fa.size {
		return util.NewVMError(util.ErrKindInvalid, "ReleaseFrame",
			fmt.Sprintf("frame %d of %d", frameIdx, fa.size), util.ErrOutBoundOfFrame)
	}
	if !fa.inUse[frameIdx] {
		return util.NewVMError(util.ErrKindInvariant, "ReleaseFrame",
			fmt.Sprintf("frame %d released twice", frameIdx), util.ErrFrameNotAllocated)
	}
	fa.inUse[frameIdx] = false
	fa.nextFree[frameIdx] = fa.freeHead
	fa.freeHead = frameIdx
	fa.free++
	return nil
}

func (fa *FrameAllocator) InUse(frameIdx int) bool {
	return frameIdx >= 0 && frameIdx < fa.size && fa.inUse[frameIdx]
}

func (fa *FrameAllocator) Free() int { return fa.free }

func (fa *FrameAllocator) Size() int { return fa.size }
