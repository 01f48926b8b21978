// Package wavfile persists captured 16-bit PCM as WAV and reads it back.
package wavfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// BitDepth is the only sample width the recorder produces.
const BitDepth = 16

// ErrEmpty is returned when there are no complete samples to write.
var ErrEmpty = errors.New("wavfile: no pcm data")

// Info describes a written or decoded file.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	DataBytes  int
}

// Duration is derived from the PCM payload size.
func (i Info) Duration() time.Duration {
	frameBytes := i.Channels * i.BitDepth / 8
	if frameBytes == 0 || i.SampleRate == 0 {
		return 0
	}
	frames := i.DataBytes / frameBytes
	return time.Duration(frames) * time.Second / time.Duration(i.SampleRate)
}

// Write encodes little-endian int16 chunks into a PCM WAV at path.
// The file is written next to path and renamed into place, so an existing
// file is only replaced by a complete one. A trailing odd byte is dropped.
func Write(path string, chunks [][]byte, sampleRate, channels int) (Info, error) {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	pcm := make([]byte, 0, total)
	for _, c := range chunks {
		pcm = append(pcm, c...)
	}
	pcm = pcm[:len(pcm)-len(pcm)%2]
	if len(pcm) == 0 {
		return Info{}, ErrEmpty
	}

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: BitDepth,
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return Info{}, err
	}
	enc := wav.NewEncoder(f, sampleRate, BitDepth, channels, 1)
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return Info{}, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return Info{}, fmt.Errorf("close wav encoder: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return Info{}, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return Info{}, err
	}
	return Info{
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   BitDepth,
		DataBytes:  len(pcm),
	}, nil
}

// ReadInfo decodes only the header and the PCM chunk size.
func ReadInfo(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Info{}, fmt.Errorf("%s: not a valid wav file", path)
	}
	if err := d.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("seek pcm: %w", err)
	}
	return Info{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		DataBytes:  d.PCMSize,
	}, nil
}

// ReadInt16 returns the interleaved samples of a PCM WAV scaled to 16 bits.
func ReadInt16(path string) ([]int16, Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Info{}, err
	}
	defer f.Close()
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, Info{}, fmt.Errorf("%s: not a valid wav file", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode wav: %w", err)
	}
	info := Info{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		DataBytes:  len(buf.Data) * int(d.BitDepth) / 8,
	}
	shift := info.BitDepth - BitDepth
	out := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			v <<= -shift
		}
		out[i] = int16(v)
	}
	return out, info, nil
}

// Mono averages interleaved channels into one.
func Mono(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	out := make([]int16, len(samples)/channels)
	for i := range out {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += int(samples[i*channels+c])
		}
		out[i] = int16(sum / channels)
	}
	return out
}

// Float32 normalizes samples to [-1, 1).
func Float32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}
