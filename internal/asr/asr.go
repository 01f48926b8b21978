// Package asr turns recorded WAV files into text.
package asr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"whisperstt/internal/config"
	"whisperstt/internal/wavfile"

	"github.com/sirupsen/logrus"
)

// ErrNotBuilt is returned when the whisper backend was not compiled in.
var ErrNotBuilt = errors.New("asr: whisper backend not built (build with -tags whisper)")

// ModelSampleRate is the rate whisper models expect.
const ModelSampleRate = 16000

// Transcriber converts an audio file into text. Calls block until done.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
	Close() error
}

// New returns the backend selected by asr.backend.
func New(cfg *config.Config, logger *logrus.Logger) (Transcriber, error) {
	switch strings.ToLower(cfg.ASR.Backend) {
	case "whisper", "":
		return newWhisperTranscriber(cfg, logger)
	case "exec":
		return newExecTranscriber(cfg, logger)
	default:
		return nil, fmt.Errorf("asr: unknown backend %q (supported: whisper, exec)", cfg.ASR.Backend)
	}
}

// LoadSamples decodes a WAV file into mono float32 at the given rate.
func LoadSamples(path string, rate int) ([]float32, error) {
	pcm, info, err := wavfile.ReadInt16(path)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%s: no audio samples", path)
	}
	mono := wavfile.Float32(wavfile.Mono(pcm, info.Channels))
	return resampleLinear(mono, info.SampleRate, rate), nil
}

func resampleLinear(in []float32, srcSR, dstSR int) []float32 {
	if srcSR == dstSR || len(in) == 0 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	ratio := float64(dstSR) / float64(srcSR)
	outLen := int(float64(len(in))*ratio + 0.9999)
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}
	return out
}

// joinSegments concatenates recognizer segments with single spaces.
func joinSegments(segs []string) string {
	var b strings.Builder
	for _, s := range segs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	return b.String()
}
