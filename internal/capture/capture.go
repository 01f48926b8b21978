package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"whisperstt/internal/config"
	"whisperstt/internal/wavfile"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config is the construction-time recorder configuration.
type Config struct {
	SampleRate  int
	Channels    int
	ChunkSize   int
	OutputPath  string
	StopTimeout time.Duration
}

// DefaultConfig returns 16 kHz mono with 1024-frame chunks.
func DefaultConfig(outputPath string) Config {
	return Config{
		SampleRate:  16000,
		Channels:    1,
		ChunkSize:   1024,
		OutputPath:  outputPath,
		StopTimeout: time.Second,
	}
}

// ConfigFrom maps the user config onto recorder settings.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		SampleRate:  cfg.Audio.SampleRate,
		Channels:    cfg.Audio.Channels,
		ChunkSize:   cfg.Audio.ChunkSize,
		OutputPath:  cfg.Paths.AudioFile,
		StopTimeout: cfg.StopTimeout(),
	}
}

func (c Config) format() Format {
	return Format{SampleRate: c.SampleRate, Channels: c.Channels, ChunkSize: c.ChunkSize}
}

// Recorder manages a single recording session at a time and persists it
// as a WAV file at a fixed path.
type Recorder struct {
	cfg    Config
	dev    Device
	logger *logrus.Logger

	mu     sync.Mutex
	sess   *session
	closed bool
}

// New creates a recorder; the output directory is created if missing.
func New(dev Device, cfg Config, logger *logrus.Logger) (*Recorder, error) {
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 || cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("capture: invalid format %d Hz, %d ch, chunk %d", cfg.SampleRate, cfg.Channels, cfg.ChunkSize)
	}
	if cfg.OutputPath == "" {
		return nil, errors.New("capture: output path not set")
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = time.Second
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0o755); err != nil {
		return nil, err
	}
	return &Recorder{cfg: cfg, dev: dev, logger: logger}, nil
}

// AudioFilePath returns the fixed output path. The file may be absent or stale.
func (r *Recorder) AudioFilePath() string {
	return r.cfg.OutputPath
}

// Active reports whether a session is recording.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess != nil
}

// Start opens the input stream and begins accumulating chunks in the
// background. Calling Start while recording is a no-op.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.sess != nil {
		return nil
	}
	f := r.cfg.format()
	stream, err := r.dev.Open(f)
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			return err
		}
		return fmt.Errorf("open input stream: %w", err)
	}
	s := newSession(stream, r.logger.WithFields(logrus.Fields{
		"session":     uuid.NewString(),
		"sample_rate": f.SampleRate,
		"channels":    f.Channels,
		"chunk_size":  f.ChunkSize,
	}))
	r.sess = s
	go s.run()
	s.log.Info("recording started")
	return nil
}

// Stop ends the session, releases the stream and writes the WAV file.
// It is a no-op when not recording. When no chunk was captured nothing is
// written and any previous file is left as is.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sess
	if s == nil {
		return nil
	}
	r.sess = nil

	chunks := s.halt(r.cfg.StopTimeout)
	if len(chunks) == 0 {
		s.log.Warn("no audio captured; keeping previous recording")
		return nil
	}
	info, err := wavfile.Write(r.cfg.OutputPath, chunks, r.cfg.SampleRate, r.cfg.Channels)
	if err != nil {
		if errors.Is(err, wavfile.ErrEmpty) {
			s.log.Warn("captured audio shorter than one sample; keeping previous recording")
			return nil
		}
		return fmt.Errorf("save recording: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"path":     r.cfg.OutputPath,
		"bytes":    info.DataBytes,
		"duration": info.Duration().String(),
	}).Info("recording saved")
	return nil
}

// Close discards any active session and releases the audio subsystem.
// It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if s := r.sess; s != nil {
		r.sess = nil
		if chunks := s.halt(r.cfg.StopTimeout); len(chunks) > 0 {
			s.log.Warnf("discarding %d unsaved chunks on close", len(chunks))
		}
	}
	if err := r.dev.Close(); err != nil {
		return fmt.Errorf("close audio device: %w", err)
	}
	return nil
}

// session is one recording. The capture goroutine is the only writer of
// chunks until halt detaches them.
type session struct {
	stream Stream
	log    *logrus.Entry
	stop   chan struct{}
	done   chan struct{}

	mu       sync.Mutex
	chunks   [][]byte
	detached bool
}

func newSession(stream Stream, log *logrus.Entry) *session {
	return &session{
		stream: stream,
		log:    log,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (s *session) stopping() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *session) run() {
	defer close(s.done)
	for !s.stopping() {
		chunk, err := s.stream.Read()
		if err != nil {
			if s.stopping() {
				return
			}
			if errors.Is(err, ErrInputOverflowed) {
				s.log.Warn("input overflow; chunk dropped")
				continue
			}
			s.log.WithError(err).Error("read audio chunk; recording ended early")
			return
		}
		s.append(chunk)
	}
}

func (s *session) append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}
	s.chunks = append(s.chunks, chunk)
}

// halt signals the goroutine, waits up to timeout, closes the stream and
// returns the accumulated chunks. Chunks read afterwards are dropped.
func (s *session) halt(timeout time.Duration) [][]byte {
	close(s.stop)
	timer := time.NewTimer(timeout)
	select {
	case <-s.done:
		timer.Stop()
	case <-timer.C:
		s.log.Warnf("capture did not stop within %s; closing stream", timeout)
	}
	if err := s.stream.Close(); err != nil {
		s.log.WithError(err).Warn("close input stream")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached = true
	chunks := s.chunks
	s.chunks = nil
	return chunks
}
