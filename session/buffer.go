package session

import (
	"errors"
	"strings"
	"sync"
)

// ErrBufferFull is returned when the buffer exceeds its maximum size
var ErrBufferFull = errors.New("transcript buffer full")

// TranscriptBuffer accumulates partial transcript fragments until a turn ends
type TranscriptBuffer struct {
	fragments []string
	totalSize int
	maxSize   int
	mu        sync.Mutex
}

// NewTranscriptBuffer creates a buffer with the specified maximum size in bytes
func NewTranscriptBuffer(maxSize int) *TranscriptBuffer {
	return &TranscriptBuffer{maxSize: maxSize}
}

// MaxSize returns the maximum buffer size
func (tb *TranscriptBuffer) MaxSize() int {
	return tb.maxSize
}

// Append adds a fragment to the buffer. Blank fragments are ignored.
// Returns ErrBufferFull if adding the fragment would exceed maxSize
func (tb *TranscriptBuffer) Append(fragment string) error {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	newSize := tb.totalSize + len(fragment)
	if newSize > tb.maxSize {
		return ErrBufferFull
	}

	tb.fragments = append(tb.fragments, fragment)
	tb.totalSize = newSize
	return nil
}

// Flush joins all fragments in order and clears the buffer
func (tb *TranscriptBuffer) Flush() string {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if len(tb.fragments) == 0 {
		return ""
	}
	text := strings.Join(tb.fragments, " ")
	tb.fragments = nil
	tb.totalSize = 0
	return text
}

// Clear empties the buffer without returning data
func (tb *TranscriptBuffer) Clear() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.fragments = nil
	tb.totalSize = 0
}

// Size returns the current total buffered bytes
func (tb *TranscriptBuffer) Size() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.totalSize
}

// IsEmpty returns true if no fragments are buffered
func (tb *TranscriptBuffer) IsEmpty() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.fragments) == 0
}

// FragmentCount returns the number of fragments in the buffer
func (tb *TranscriptBuffer) FragmentCount() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.fragments)
}
