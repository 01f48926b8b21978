//go:build whisper

package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"whisperstt/internal/config"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/sirupsen/logrus"
)

// whisperTranscriber keeps one loaded model; contexts are per call.
type whisperTranscriber struct {
	cfg    *config.Config
	logger *logrus.Logger

	mu    sync.Mutex
	model whisper.Model
}

func newWhisperTranscriber(cfg *config.Config, logger *logrus.Logger) (Transcriber, error) {
	model, err := whisper.New(cfg.ASR.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", cfg.ASR.ModelPath, err)
	}
	return &whisperTranscriber{cfg: cfg, logger: logger, model: model}, nil
}

func (w *whisperTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	samples, err := LoadSamples(path, ModelSampleRate)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return "", errors.New("asr: transcriber closed")
	}
	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper context: %w", err)
	}
	if w.cfg.ASR.Threads > 0 {
		wctx.SetThreads(uint(w.cfg.ASR.Threads))
	}
	if lang := strings.TrimSpace(w.cfg.ASR.Language); lang != "" {
		if err := wctx.SetLanguage(lang); err != nil {
			w.logger.Warnf("set language %q: %v", lang, err)
		}
	}

	start := time.Now()
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}
	var segs []string
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		segs = append(segs, seg.Text)
	}
	w.logger.WithFields(logrus.Fields{
		"samples":  len(samples),
		"segments": len(segs),
		"elapsed":  time.Since(start).Round(time.Millisecond).String(),
	}).Info("whisper transcription finished")
	return joinSegments(segs), nil
}

func (w *whisperTranscriber) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return nil
	}
	err := w.model.Close()
	w.model = nil
	return err
}
