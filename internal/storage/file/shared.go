package file

// Store is the backing store for non-resident pages. Every transfer is
// exactly one sector at a sector-aligned offset.
type Store interface {
	ReadAt(buf []byte, off int64) error
	WriteAt(buf []byte, off int64) error
	CopySector(to, from int64) error
	Size() int64
	Close() error
	Remove() error
}

var _ Store = (*SwapFile)(nil)
