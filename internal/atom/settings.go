package atom

import (
	"errors"
	"fmt"
)

// Bounds and defaults for quark chunking.
const (
	MinMaximumLength     = 256
	MaxMaximumLength     = 16384
	DefaultMaximumLength = 512
	DefaultShiftSize     = 512
)

// ErrInvalidSettings reports chunking settings outside their allowed range.
var ErrInvalidSettings = errors.New("invalid chunking settings")

// ChunkingSettings controls how extractors break oversized text atoms into
// quarks. The zero value is not valid; use DefaultChunkingSettings or
// NewChunkingSettings.
type ChunkingSettings struct {
	enabled       bool
	maximumLength int
	shiftSize     int
}

// DefaultChunkingSettings returns disabled settings with 512/512 windows.
func DefaultChunkingSettings() ChunkingSettings {
	return ChunkingSettings{maximumLength: DefaultMaximumLength, shiftSize: DefaultShiftSize}
}

// NewChunkingSettings validates and builds settings.
func NewChunkingSettings(enabled bool, maximumLength, shiftSize int) (ChunkingSettings, error) {
	if maximumLength < MinMaximumLength || maximumLength > MaxMaximumLength {
		return ChunkingSettings{}, fmt.Errorf("%w: maximum length %d outside [%d, %d]",
			ErrInvalidSettings, maximumLength, MinMaximumLength, MaxMaximumLength)
	}
	if shiftSize <= 0 {
		return ChunkingSettings{}, fmt.Errorf("%w: shift size %d must be positive", ErrInvalidSettings, shiftSize)
	}
	if shiftSize > maximumLength {
		return ChunkingSettings{}, fmt.Errorf("%w: shift size %d exceeds maximum length %d",
			ErrInvalidSettings, shiftSize, maximumLength)
	}
	return ChunkingSettings{enabled: enabled, maximumLength: maximumLength, shiftSize: shiftSize}, nil
}

func (s ChunkingSettings) Enabled() bool { return s.enabled }
func (s ChunkingSettings) MaximumLength() int { return s.maximumLength }
func (s ChunkingSettings) ShiftSize() int { return s.shiftSize }

// WithEnabled returns a copy with the enable flag set.
func (s ChunkingSettings) WithEnabled(enabled bool) ChunkingSettings {
	s.enabled = enabled
	return s
}

// WithMaximumLength returns a copy with a new maximum length, or an error if
// the result would be invalid.
func (s ChunkingSettings) WithMaximumLength(n int) (ChunkingSettings, error) {
	return NewChunkingSettings(s.enabled, n, s.shiftSize)
}

// WithShiftSize returns a copy with a new shift size, or an error if the
// result would be invalid.
func (s ChunkingSettings) WithShiftSize(n int) (ChunkingSettings, error) {
	return NewChunkingSettings(s.enabled, s.maximumLength, n)
}
