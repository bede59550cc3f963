//go:build unix

package file

import (
	"fmt"
	"syscall"

	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
)

// Base on: https://github.com/etcd-io/bbolt/blob/main/bolt_unix.go

func mmap(sf *SwapFile, size int64) error {
	if sf.File == nil {
		return util.ErrFileManagerNil
	}
	if size <= 0 {
		return util.ErrInvalidSectorCount
	}
	if size > util.MAX_MAP_SIZE {
		return util.ErrMaxMapSizeExceeded
	}

	if err := sf.File.Truncate(size); err != nil {
		return fmt.Errorf("truncate to %d: %w", size, err)
	}

	b, err := syscall.Mmap(int(sf.File.Fd()), 0, int(size), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}

	sf.Data = b
	sf.size = size
	return nil
}

// munmap unmaps the swap file.
func munmap(sf *SwapFile) error {
	if sf.Data == nil {
		return nil
	}

	err := syscall.Munmap(sf.Data)
	sf.Data = nil
	sf.size = 0
	if err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

// flush writes dirty mapped pages to the file.
func flush(sf *SwapFile) error {
	if sf.Data == nil {
		return nil
	}
	return sf.File.Sync()
}
