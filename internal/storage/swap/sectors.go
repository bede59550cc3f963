// Package swap tracks which sectors of the swap area hold page contents.
package swap

import (
	"fmt"

	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
	"github.com/bits-and-blooms/bitset"
)

// SectorMap is a bitmap over the swap sectors; a set bit means the sector
// backs some page.
type SectorMap struct {
	bits    *bitset.BitSet
	sectors uint
}

func NewSectorMap(sectors int) *SectorMap {
	if sectors <= 0 {
		panic(util.ErrInvalidSectorCount)
	}
	return &SectorMap{
		bits:    bitset.New(uint(sectors)),
		sectors: uint(sectors),
	}
}

// Allocate marks the first free sector and returns its byte offset.
func (sm *SectorMap) Allocate() (int64, error) {
	idx, ok := sm.bits.NextClear(0)
	if !ok || idx >= sm.sectors {
		return -1, util.NewVMError(util.ErrKindExhausted, "AllocSwapSector",
			fmt.Sprintf("all %d swap sectors in use", sm.sectors), util.ErrSwapExhausted)
	}
	sm.bits.Set(idx)
	return int64(idx) * util.SectorSize, nil
}

// Release frees the sector at offset. Releasing a free sector is an error.
func (sm *SectorMap) Release(offset int64) error {
	idx, err := sm.index(offset)
	if err != nil {
		return err
	}
	if !sm.bits.Test(idx) {
		return util.NewVMError(util.ErrKindInvariant, "ReleaseSwapSector",
			fmt.Sprintf("sector %d released twice", idx), util.ErrSectorNotAllocated).With("offset", offset)
	}
	sm.bits.Clear(idx)
	return nil
}

func (sm *SectorMap) IsAllocated(offset int64) bool {
	idx, err := sm.index(offset)
	if err != nil {
		return false
	}
	return sm.bits.Test(idx)
}

func (sm *SectorMap) InUse() int { return int(sm.bits.Count()) }

func (sm *SectorMap) Free() int { return int(sm.sectors) - sm.InUse() }

func (sm *SectorMap) Len() int { return int(sm.sectors) }

func (sm *SectorMap) index(offset int64) (uint, error) {
	if offset < 0 || offset%util.SectorSize != 0 || offset/util.SectorSize >= int64(sm.sectors) {
		return 0, util.NewVMError(util.ErrKindInvalid, "swap sector",
			fmt.Sprintf("offset %d is not a sector boundary inside %d sectors", offset, sm.sectors), util.ErrInvalidOffset)
	}
	return uint(offset / util.SectorSize), nil
}
