//go:build windows

package file

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"

	util "github.com/bietkhonhungvandi212/pagevm/internal/utils"
)

// Base on: https://github.com/etcd-io/bbolt/blob/main/bolt_windows.go

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
	sizehi := uint32(size >> 32)
	sizelo := uint32(size)
	h, err := syscall.CreateFileMapping(syscall.Handle(sf.File.Fd()), nil, syscall.PAGE_READWRITE, sizehi, sizelo, nil)
	if err != nil {
		return fmt.Errorf("create mapping: %w", err)
	}
	ptr, err := syscall.MapViewOfFile(h, syscall.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if e := syscall.CloseHandle(h); e != nil && err == nil {
		return os.NewSyscallError("CloseHandle", e)
	}
	if err != nil {
		return fmt.Errorf("map view: %w", err)
	}
	sf.Data = (*[util.MAX_MAP_SIZE]byte)(unsafe.Pointer(ptr))[:size:size]
	sf.size = size
	return nil
}

// munmap unmaps the swap file.
func munmap(sf *SwapFile) error {
	if sf.Data == nil {
		return nil
	}

	addr := uintptr(unsafe.Pointer(&sf.Data[0]))
	var err error
	if e := syscall.UnmapViewOfFile(addr); e != nil {
		err = fmt.Errorf("unmap: %w", e)
	}

	sf.Data = nil
	sf.size = 0
	return err
}

func flush(sf *SwapFile) error {
	if sf.Data == nil {
		return nil
	}
	if err := syscall.FlushViewOfFile(uintptr(unsafe.Pointer(&sf.Data[0])), uintptr(len(sf.Data))); err != nil {
		return os.NewSyscallError("FlushViewOfFile", err)
	}
	return sf.File.Sync()
}
