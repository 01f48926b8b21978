// Package vad decides whether a recording contains speech worth transcribing.
package vad

import (
	"fmt"

	"whisperstt/internal/config"
)

// Detector reports whether the WAV file at path contains speech.
type Detector interface {
	HasSpeech(path string) (bool, error)
}

// Settings tune the webrtc detector.
type Settings struct {
	Aggressiveness int // 0 (least) .. 3 (most aggressive)
	FrameMS        int // 10, 20 or 30
	MinSpeechMS    int
}

// SettingsFrom reads the [vad] section.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		Aggressiveness: cfg.VAD.Aggressiveness,
		FrameMS:        cfg.VAD.FrameMS,
		MinSpeechMS:    cfg.VAD.MinSpeechMS,
	}
}

func (s Settings) validate() error {
	if s.Aggressiveness < 0 || s.Aggressiveness > 3 {
		return fmt.Errorf("vad.aggressiveness must be 0-3 (got %d)", s.Aggressiveness)
	}
	switch s.FrameMS {
	case 10, 20, 30:
	default:
		return fmt.Errorf("vad.frame_ms must be 10, 20, or 30 (got %d)", s.FrameMS)
	}
	return nil
}

// supportedRate reports whether webrtc VAD accepts the sample rate.
func supportedRate(rate int) bool {
	switch rate {
	case 8000, 16000, 32000, 48000:
		return true
	}
	return false
}

// frameSamples is the number of mono samples in one frame.
func (s Settings) frameSamples(rate int) int {
	return rate * s.FrameMS / 1000
}

// AlwaysSpeech accepts every recording.
type AlwaysSpeech struct{}

func (AlwaysSpeech) HasSpeech(string) (bool, error) { return true, nil }
