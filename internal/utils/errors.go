package util

import "errors"

var (
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidSectorCount = errors.New("swap sectors must be positive")
	ErrInvalidPoolSize    = errors.New("invalid pool size")
	ErrInvalidOffset      = errors.New("invalid offset or size")
	ErrPageOutOfBounds    = errors.New("page out of bounds")
	ErrMaxMapSizeExceeded = errors.New("size exceeds maximum mapping size")
	ErrFileManagerNil     = errors.New("swap file is nil")
	ErrFileDataNil        = errors.New("swap file is not mapped")
	ErrInvalidSwapPath    = errors.New("swap path must not be empty")

	ErrPageAlreadyValid  = errors.New("page is already valid")
	ErrPageNotValid      = errors.New("page is not valid")
	ErrPageAlreadyDirty  = errors.New("page is already dirty")
	ErrPageNotDirty      = errors.New("page is not dirty")
	ErrPageNotUsed       = errors.New("page use bit is not set")
	ErrPageAlreadyPinned = errors.New("page is already pinned")
	ErrPageNotPinned     = errors.New("page is not pinned")

	ErrSwapExhausted      = errors.New("no free swap sector")
	ErrSectorNotAllocated = errors.New("swap sector is not allocated")
	ErrNoFreeFrame        = errors.New("no free frames")
	ErrFrameNotAllocated  = errors.New("frame is not allocated")
	ErrOutBoundOfFrame    = errors.New("frame idx out of bound")
	ErrNoVictim           = errors.New("no evictable frame within max loop")
	ErrHandOutOfRange     = errors.New("clock hand out of range")

	ErrFrameNotOwned     = errors.New("frame is not owned by any address space")
	ErrFrameInUse        = errors.New("frame is already owned")
	ErrDirectoryMismatch = errors.New("frame directory does not match page table")
	ErrUnknownSpace      = errors.New("unknown address space")
	ErrAddressOutOfRange = errors.New("virtual address out of range")
	ErrManagerClosed     = errors.New("virtual memory manager is destroyed")
)
