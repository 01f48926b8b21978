//go:build whisper

package vad

import (
	"encoding/binary"
	"fmt"

	"whisperstt/internal/wavfile"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
	"github.com/sirupsen/logrus"
)

type webrtcDetector struct {
	settings Settings
	logger   *logrus.Logger
}

// New returns a webrtc VAD backed detector.
func New(s Settings, logger *logrus.Logger) (Detector, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &webrtcDetector{settings: s, logger: logger}, nil
}

func (d *webrtcDetector) HasSpeech(path string) (bool, error) {
	pcm, info, err := wavfile.ReadInt16(path)
	if err != nil {
		return false, err
	}
	if !supportedRate(info.SampleRate) {
		d.logger.Debugf("vad: %d Hz unsupported, skipping speech check", info.SampleRate)
		return true, nil
	}
	mono := wavfile.Mono(pcm, info.Channels)

	v, err := webrtcvad.New()
	if err != nil {
		return false, fmt.Errorf("vad init: %w", err)
	}
	if err := v.SetMode(d.settings.Aggressiveness); err != nil {
		return false, fmt.Errorf("vad mode: %w", err)
	}

	n := d.settings.frameSamples(info.SampleRate)
	frame := make([]byte, n*2)
	voicedMS := 0
	for off := 0; off+n <= len(mono); off += n {
		for i, s := range mono[off : off+n] {
			binary.LittleEndian.PutUint16(frame[i*2:], uint16(s))
		}
		active, err := v.Process(info.SampleRate, frame)
		if err != nil {
			return false, fmt.Errorf("vad process: %w", err)
		}
		if active {
			voicedMS += d.settings.FrameMS
			if voicedMS >= d.settings.MinSpeechMS {
				return true, nil
			}
		}
	}
	d.logger.WithField("voiced_ms", voicedMS).Info("vad: no speech detected")
	return false, nil
}
