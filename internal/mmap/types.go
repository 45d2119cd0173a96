package mmap

import "errors"

// AccessPattern is a hint to the kernel about how mapped data is read.
type AccessPattern int

const (
	// AccessDefault leaves the kernel default in place.
	AccessDefault AccessPattern = iota
	// AccessSequential expects a front-to-back scan (index load, checksum).
	AccessSequential
	// AccessRandom expects point reads (key lookups).
	AccessRandom
	// AccessWillNeed asks the kernel to prefetch.
	AccessWillNeed
)

var (
	// ErrClosed is returned when a closed mapping is used.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for negative or non-addressable sizes.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrInvalidOffset is returned for negative read offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)
