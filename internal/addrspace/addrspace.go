// Package addrspace holds per-process page tables and the registry that
// frame directory entries refer to by id.
package addrspace

import (
	"fmt"

	"github.com/bietkhonhungvandi212/pagevm/internal/storage/page"
	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
)

// ID identifies an address space in a Registry. The zero ID is never issued.
type ID int

const NoSpace ID = 0

type AddrSpace struct {
	id        ID
	pageTable []page.Entry
}

func (as *AddrSpace) ID() ID { return as.id }

func (as *AddrSpace) NumPages() int { return len(as.pageTable) }

// Entry returns the page table entry for pageIndex; it is mutable in place.
func (as *AddrSpace) Entry(pageIndex int) (*page.Entry, error) {
	if pageIndex < 0 || pageIndex >= len(as.pageTable) {
		return nil, util.NewVMError(util.ErrKindInvalid, "PageTableEntry",
			fmt.Sprintf("page %d of %d in space %d", pageIndex, len(as.pageTable), as.id), util.ErrAddressOutOfRange)
	}
	return &as.pageTable[pageIndex], nil
}

// PageIndex converts a virtual address to a page table index.
func (as *AddrSpace) PageIndex(virtAddr int) (int, error) {
	if virtAddr < 0 || virtAddr >= len(as.pageTable)*util.PageSize {
		return -1, util.NewVMError(util.ErrKindInvalid, "PageIndex",
			fmt.Sprintf("address %d outside space %d of %d pages", virtAddr, as.id, len(as.pageTable)), util.ErrAddressOutOfRange)
	}
	return virtAddr / util.PageSize, nil
}

// Registry owns every live address space.
type Registry struct {
	spaces map[ID]*AddrSpace
	nextID ID
}

func NewRegistry() *Registry {
	return &Registry{
		spaces: make(map[ID]*AddrSpace),
		nextID: 1,
	}
}

// Create registers a space of numPages entries whose backing offsets are
// taken from swapOffsets, one per page.
func (r *Registry) Create(swapOffsets []int64) (*AddrSpace, error) {
	if len(swapOffsets) == 0 {
		return nil, util.NewVMError(util.ErrKindInvalid, "CreateSpace", "address space needs at least one page", util.ErrInvalidPoolSize)
	}
	as := &AddrSpace{
		id:        r.nextID,
		pageTable: make([]page.Entry, len(swapOffsets)),
	}
	for i, off := range swapOffsets {
		as.pageTable[i] = page.NewEntry(i, off)
	}
	r.spaces[as.id] = as
	r.nextID++
	return as, nil
}

func (r *Registry) Lookup(id ID) (*AddrSpace, bool) {
	as, ok := r.spaces[id]
	return as, ok
}

func (r *Registry) Remove(id ID) {
	delete(r.spaces, id)
}

func (r *Registry) Len() int { return len(r.spaces) }

// IDs returns the live ids in no particular order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.spaces))
	for id := range r.spaces {
		ids = append(ids, id)
	}
	return ids
}
