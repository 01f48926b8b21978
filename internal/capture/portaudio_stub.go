//go:build !whisper

package capture

// PortAudioDevice is unavailable without the whisper build tag.
type PortAudioDevice struct{}

// NewPortAudioDevice reports that microphone support was not compiled in.
func NewPortAudioDevice(name string) (*PortAudioDevice, error) {
	return nil, ErrNotBuilt
}

func (d *PortAudioDevice) Open(f Format) (Stream, error) { return nil, ErrNotBuilt }

func (d *PortAudioDevice) Close() error { return nil }
