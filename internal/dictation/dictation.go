// Package dictation wires user actions (toggle, transcribe, clear, save) to
// the recorder and the transcriber.
package dictation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"whisperstt/internal/asr"
	"whisperstt/internal/hook"
	"whisperstt/internal/vad"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNoRecording means there is no audio file to transcribe yet.
	ErrNoRecording = errors.New("no audio recorded yet")
	// ErrNoSpeech means the recording was rejected by the speech detector.
	ErrNoSpeech = errors.New("no speech detected in recording")
)

// Recorder is the capture surface the controller drives.
type Recorder interface {
	Start() error
	Stop() error
	Active() bool
	AudioFilePath() string
}

// Transcript is one transcription result.
type Transcript struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Options configure optional collaborators.
type Options struct {
	Speech         vad.Detector // nil disables the speech check
	Hook           *hook.Runner // nil or disabled runner skips the hook
	TranscriptPath string       // history file; empty disables
}

// Controller holds the displayed text and routes actions.
type Controller struct {
	rec    Recorder
	asr    asr.Transcriber
	opts   Options
	logger *logrus.Logger

	mu      sync.Mutex
	entries []Transcript
}

func New(rec Recorder, tr asr.Transcriber, opts Options, logger *logrus.Logger) *Controller {
	return &Controller{rec: rec, asr: tr, opts: opts, logger: logger}
}

// Toggle starts recording when idle and stops it when active. It returns
// whether the recorder is recording afterwards.
func (c *Controller) Toggle() (bool, error) {
	if c.rec.Active() {
		if err := c.rec.Stop(); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := c.rec.Start(); err != nil {
		return false, err
	}
	return true, nil
}

// Transcribe stops an active recording, transcribes the audio file and
// appends the result to the displayed text.
func (c *Controller) Transcribe(ctx context.Context) (string, error) {
	if c.rec.Active() {
		if err := c.rec.Stop(); err != nil {
			return "", err
		}
	}
	path := c.rec.AudioFilePath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoRecording
		}
		return "", err
	}
	return c.TranscribeFile(ctx, path)
}

// TranscribeFile runs the speech check and the transcriber on path.
func (c *Controller) TranscribeFile(ctx context.Context, path string) (string, error) {
	log := c.logger.WithField("path", path)
	if c.opts.Speech != nil {
		ok, err := c.opts.Speech.HasSpeech(path)
		if err != nil {
			return "", fmt.Errorf("speech check: %w", err)
		}
		if !ok {
			return "", ErrNoSpeech
		}
	}

	start := time.Now()
	text, err := c.asr.Transcribe(ctx, path)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond).String()).Infof("transcribed: %q", text)
	if text == "" {
		return "", nil
	}

	entry := Transcript{Text: text, Timestamp: time.Now()}
	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()
	c.recordTranscript(entry)

	if c.opts.Hook != nil && c.opts.Hook.Enabled() {
		if err := c.opts.Hook.Run(ctx, hook.Job{Text: text, Timestamp: entry.Timestamp}); err != nil {
			log.Errorf("hook: %v", err)
		}
	}
	return text, nil
}

// Text is the accumulated display text, one transcript per line.
func (c *Controller) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]string, len(c.entries))
	for i, e := range c.entries {
		lines[i] = e.Text
	}
	return strings.Join(lines, "\n")
}

// Transcripts returns a copy of the displayed entries.
func (c *Controller) Transcripts() []Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Transcript, len(c.entries))
	copy(out, c.entries)
	return out
}

// Clear empties the displayed text. History on disk is kept.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}

// Save writes the displayed text to path.
func (c *Controller) Save(path string) error {
	text := c.Text()
	if text == "" {
		return errors.New("nothing to save")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text+"\n"), 0o644)
}

func (c *Controller) recordTranscript(entry Transcript) {
	if c.opts.TranscriptPath == "" {
		return
	}
	f, err := os.OpenFile(c.opts.TranscriptPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		c.logger.Warnf("open transcript log: %v", err)
		return
	}
	if _, err := fmt.Fprintf(f, "%s\t%s\n", entry.Timestamp.Format(time.RFC3339), entry.Text); err != nil {
		c.logger.Warnf("write transcript: %v", err)
	}
	_ = f.Close()
}
