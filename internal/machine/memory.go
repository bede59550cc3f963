// Package machine holds the simulated physical memory and the allocator
// that hands out its frames.
package machine

import (
	"fmt"

	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
)

// Memory is the physical memory aperture: numFrames frames of PageSize bytes.
type Memory struct {
	data      []byte
	numFrames int
}

func NewMemory(numFrames int) *Memory {
	if numFrames <= 0 {
		panic(util.ErrInvalidPoolSize)
	}
	return &Memory{
		data:      make([]byte, numFrames*util.PageSize),
		numFrames: numFrames,
	}
}

func (m *Memory) NumFrames() int { return m.numFrames }

// Frame returns the bytes of frame n. The slice aliases main memory.
func (m *Memory) Frame(n int) ([]byte, error) {
	if n < 0 || n >= m.numFrames {
		return nil, fmt.Errorf("frame %d of %d: %w", n, m.numFrames, util.ErrOutBoundOfFrame)
	}
	start := n * util.PageSize
	return m.data[start : start+util.PageSize : start+util.PageSize], nil
}
