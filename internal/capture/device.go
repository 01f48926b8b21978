// Package capture records microphone audio into a fixed-path WAV file.
package capture

import "errors"

var (
	// ErrUnsupportedFormat is returned when the input device cannot open a
	// stream with the requested rate/channels/16-bit format.
	ErrUnsupportedFormat = errors.New("capture: audio format not supported by input device")
	// ErrInputOverflowed marks a chunk the device dropped; capture continues.
	ErrInputOverflowed = errors.New("capture: input overflowed")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("capture: recorder closed")
	// ErrNotBuilt is returned when the binary lacks a hardware backend.
	ErrNotBuilt = errors.New("capture: built without microphone support (build with -tags whisper)")
)

// Format fully determines the stream: 16-bit signed little-endian samples.
type Format struct {
	SampleRate int
	Channels   int
	ChunkSize  int // frames per read
}

// ChunkBytes is the size of one full read.
func (f Format) ChunkBytes() int {
	return f.ChunkSize * f.Channels * 2
}

// Stream is an open input stream. Read blocks until one chunk is available.
// Close must unblock a pending Read.
type Stream interface {
	Read() ([]byte, error)
	Close() error
}

// Device owns the audio subsystem and hands out at most one stream at a time.
type Device interface {
	Open(f Format) (Stream, error)
	Close() error
}
