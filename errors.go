package probingpt

import (
	"errors"

	"github.com/hupe1980/probingpt/internal/arena"
)

var (
	// ErrNotLoaded is returned when a table is used before Load.
	ErrNotLoaded = errors.New("probingpt: table not loaded")
	// ErrAlreadyLoaded is returned by a second Load.
	ErrAlreadyLoaded = errors.New("probingpt: table already loaded")
	// ErrClosed is returned when a closed table is used.
	ErrClosed = errors.New("probingpt: table closed")
	// ErrNilArena is returned when LookupSpan is called without an arena.
	ErrNilArena = errors.New("probingpt: nil arena")
	// ErrNilInterner is returned when Load is called without an interner.
	ErrNilInterner = errors.New("probingpt: nil interner")
	// ErrInvalidTableLimit is returned for a non-positive table limit.
	ErrInvalidTableLimit = errors.New("probingpt: table limit must be positive")
	// ErrArenaClosed is returned when allocating from a freed arena.
	ErrArenaClosed = arena.ErrClosed
)
