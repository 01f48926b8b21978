package control

import (
	"errors"

	"whisperstt/internal/asr"
	"whisperstt/internal/capture"
	"whisperstt/internal/config"
	"whisperstt/internal/dictation"
	"whisperstt/internal/hook"
	"whisperstt/internal/logging"
	"whisperstt/internal/vad"

	"github.com/sirupsen/logrus"
)

// loadRuntime loads config and configures logging.
func loadRuntime(cfgPath string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.Configure(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openRecorder binds the recorder to the configured microphone.
func openRecorder(cfg *config.Config, logger *logrus.Logger) (*capture.Recorder, error) {
	dev, err := capture.NewPortAudioDevice(cfg.Audio.DeviceName)
	if err != nil {
		return nil, err
	}
	rec, err := capture.New(dev, capture.ConfigFrom(cfg), logger)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	return rec, nil
}

// newController builds the transcriber, speech check and hook around rec.
// The returned closer releases the transcriber.
func newController(cfg *config.Config, logger *logrus.Logger, rec dictation.Recorder) (*dictation.Controller, func() error, error) {
	tr, err := asr.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	opts := dictation.Options{Hook: hook.NewRunner(cfg, logger)}
	if cfg.VAD.Enabled {
		det, err := vad.New(vad.SettingsFrom(cfg), logger)
		if err != nil {
			_ = tr.Close()
			return nil, nil, err
		}
		opts.Speech = det
	}
	if cfg.Transcripts.Enabled {
		opts.TranscriptPath = cfg.Paths.TranscriptPath
	}
	return dictation.New(rec, tr, opts, logger), tr.Close, nil
}

// fileRecorder stands in for the microphone when transcribing an existing
// file: it is never active and always points at the same path.
type fileRecorder struct{ path string }

func (f fileRecorder) Start() error          { return errors.New("recording not available here") }
func (f fileRecorder) Stop() error           { return nil }
func (f fileRecorder) Active() bool          { return false }
func (f fileRecorder) AudioFilePath() string { return f.path }
