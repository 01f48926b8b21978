//go:build whisper

package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice opens blocking 16-bit input streams via PortAudio.
type PortAudioDevice struct {
	name      string
	closeOnce sync.Once
	closeErr  error
}

// NewPortAudioDevice initializes PortAudio. name selects an input device by
// case-insensitive substring; empty means the system default.
func NewPortAudioDevice(name string) (*PortAudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	return &PortAudioDevice{name: name}, nil
}

// Open implements Device.
func (d *PortAudioDevice) Open(f Format) (Stream, error) {
	dev, err := SelectDevice(d.name)
	if err != nil {
		return nil, err
	}
	buf := make([]int16, f.ChunkSize*f.Channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: f.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(f.SampleRate),
		FramesPerBuffer: f.ChunkSize,
	}
	if f.Channels > dev.MaxInputChannels {
		return nil, fmt.Errorf("%w: %s has %d input channels, want %d", ErrUnsupportedFormat, dev.Name, dev.MaxInputChannels, f.Channels)
	}
	if err := portaudio.IsFormatSupported(params, &buf); err != nil {
		return nil, fmt.Errorf("%w: %s at %d Hz, %d ch: %v", ErrUnsupportedFormat, dev.Name, f.SampleRate, f.Channels, err)
	}
	stream, err := portaudio.OpenStream(params, &buf)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}
	return &paStream{stream: stream, buf: buf}, nil
}

// Close terminates PortAudio once.
func (d *PortAudioDevice) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = portaudio.Terminate()
	})
	return d.closeErr
}

type paStream struct {
	stream *portaudio.Stream
	buf    []int16

	mu     sync.Mutex
	closed bool
}

func (s *paStream) Read() ([]byte, error) {
	if err := s.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			return nil, ErrInputOverflowed
		}
		return nil, err
	}
	out := make([]byte, len(s.buf)*2)
	for i, v := range s.buf {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out, nil
}

func (s *paStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	// Abort rather than Stop so a blocked Read returns immediately.
	_ = s.stream.Abort()
	return s.stream.Close()
}

// SelectDevice picks the preferred input device, the default, or the first
// device with input channels.
func SelectDevice(preferred string) (*portaudio.DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if preferred != "" {
		for _, d := range devs {
			if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), strings.ToLower(preferred)) {
				return d, nil
			}
		}
	}
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		return def, nil
	}
	for _, d := range devs {
		if d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input devices found")
}
