package file

import (
	"errors"
	"fmt"
	"os"

	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
)

/**
* SwapFile is the fixed-size swap area. The file is mapped into memory so a
* sector transfer is a copy between the mapping and a frame.
* Sector i lives at byte i*SectorSize; there is no header.
**/
type SwapFile struct {
	File *os.File
	Data []byte
	size int64
	path string
}

func NewSwapFile(path string, sectors int) (*SwapFile, error) {
	if sectors <= 0 {
		return nil, util.ErrInvalidSectorCount
	}

	size := int64(sectors) * int64(util.SectorSize)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open swap file: %w", err)
	}

	sf := &SwapFile{File: f, path: path}

	if err := mmap(sf, size); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("map swap file fail: %w", err)
	}

	return sf, nil
}

func (sf *SwapFile) Size() int64 { return sf.size }

func (sf *SwapFile) Path() string { return sf.path }

/* READ SECTOR */
func (sf *SwapFile) ReadAt(buf []byte, off int64) error {
	if err := sf.check(buf, off); err != nil {
		return fmt.Errorf("[ReadAt] %w", err)
	}
	copy(buf, sf.Data[off:off+util.SectorSize])
	return nil
}

/* WRITE SECTOR */
func (sf *SwapFile) WriteAt(buf []byte, off int64) error {
	if err := sf.check(buf, off); err != nil {
		return fmt.Errorf("[WriteAt] %w", err)
	}
	copy(sf.Data[off:off+util.SectorSize], buf)
	return nil
}

// CopySector duplicates the sector at from into the sector at to.
func (sf *SwapFile) CopySector(to, from int64) error {
	var sectorBuf [util.SectorSize]byte
	if err := sf.ReadAt(sectorBuf[:], from); err != nil {
		return fmt.Errorf("[CopySector] read %d: %w", from, err)
	}
	if err := sf.WriteAt(sectorBuf[:], to); err != nil {
		return fmt.Errorf("[CopySector] write %d: %w", to, err)
	}
	return nil
}

func (sf *SwapFile) check(buf []byte, off int64) error {
	if sf == nil || sf.File == nil {
		return util.ErrFileManagerNil
	}
	if sf.Data == nil {
		return util.ErrFileDataNil
	}
	if len(buf) != util.SectorSize {
		return fmt.Errorf("transfer of %d bytes: %w", len(buf), util.ErrInvalidPageSize)
	}
	if off < 0 || off%util.SectorSize != 0 {
		return fmt.Errorf("offset %d: %w", off, util.ErrInvalidOffset)
	}
	if off+util.SectorSize > sf.size {
		return fmt.Errorf("offset %d of %d: %w", off, sf.size, util.ErrPageOutOfBounds)
	}
	return nil
}

/**
* CLOSE FUNCTION
**/
func (sf *SwapFile) Close() error {
	if sf == nil || sf.File == nil {
		return nil // Idempotent
	}
	var err error
	if e := flush(sf); e != nil {
		err = errors.Join(err, fmt.Errorf("[close] sync mapping: %w", e))
	}
	if e := munmap(sf); e != nil {
		err = errors.Join(err, fmt.Errorf("[close] unmap file fail: %w", e))
	}
	if e := sf.File.Close(); e != nil {
		err = errors.Join(err, fmt.Errorf("close file: %w", e))
	}
	sf.File = nil
	return err
}

// Remove closes the swap file and deletes it from disk.
func (sf *SwapFile) Remove() error {
	if sf == nil {
		return nil
	}
	err := sf.Close()
	if e := os.Remove(sf.path); e != nil && !errors.Is(e, os.ErrNotExist) {
		err = errors.Join(err, fmt.Errorf("remove %s: %w", sf.path, e))
	}
	return err
}
