package capture

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"whisperstt/internal/logging"
	"whisperstt/internal/wavfile"
)

var errDeviceGone = errors.New("device unplugged")

// fakeStream hands out queued results, then blocks until closed.
type fakeStream struct {
	mu      sync.Mutex
	results []readResult
	closed  chan struct{}
	drained chan struct{}
	once    sync.Once
	closes  int
}

type readResult struct {
	data []byte
	err  error
}

func newFakeStream(results ...readResult) *fakeStream {
	return &fakeStream{
		results: results,
		closed:  make(chan struct{}),
		drained: make(chan struct{}),
	}
}

func (s *fakeStream) Read() ([]byte, error) {
	s.mu.Lock()
	if len(s.results) > 0 {
		r := s.results[0]
		s.results = s.results[1:]
		if len(s.results) == 0 {
			s.once.Do(func() { close(s.drained) })
		}
		s.mu.Unlock()
		return r.data, r.err
	}
	s.once.Do(func() { close(s.drained) })
	s.mu.Unlock()
	<-s.closed
	return nil, errors.New("stream closed")
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	if s.closes == 1 {
		close(s.closed)
	}
	return nil
}

func (s *fakeStream) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type fakeDevice struct {
	mu      sync.Mutex
	streams []*fakeStream
	opened  []Format
	openErr error
	closes  int
}

func (d *fakeDevice) Open(f Format) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opened = append(d.opened, f)
	if len(d.streams) == 0 {
		return newFakeStream(), nil
	}
	s := d.streams[0]
	d.streams = d.streams[1:]
	return s, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

func chunkOf(n int) readResult {
	return readResult{data: make([]byte, n)}
}

func newTestRecorder(t *testing.T, dev Device, cfg Config) *Recorder {
	t.Helper()
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(t.TempDir(), "whisper_stt", "recording.wav")
	}
	cfg.StopTimeout = 50 * time.Millisecond
	rec, err := New(dev, cfg, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return rec
}

func waitDrained(t *testing.T, s *fakeStream) {
	t.Helper()
	select {
	case <-s.drained:
	case <-time.After(2 * time.Second):
		t.Fatalf("capture goroutine did not consume queued chunks")
	}
}

func TestThreeChunksProduceWav(t *testing.T) {
	stream := newFakeStream(chunkOf(1024), chunkOf(1024), chunkOf(1024))
	dev := &fakeDevice{streams: []*fakeStream{stream}}
	rec := newTestRecorder(t, dev, DefaultConfig(""))

	if err := rec.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !rec.Active() {
		t.Fatalf("expected active recorder")
	}
	waitDrained(t, stream)
	if err := rec.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if rec.Active() {
		t.Fatalf("recorder still active after stop")
	}
	if stream.closeCount() != 1 {
		t.Fatalf("stream closed %d times", stream.closeCount())
	}

	info, err := wavfile.ReadInfo(rec.AudioFilePath())
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if info.SampleRate != 16000 || info.Channels != 1 || info.BitDepth != 16 {
		t.Fatalf("header mismatch: %+v", info)
	}
	if info.DataBytes != 3072 {
		t.Fatalf("data size %d want 3072", info.DataBytes)
	}
	if got, want := info.Duration(), 96*time.Millisecond; got != want {
		t.Fatalf("duration %s want %s", got, want)
	}
	if got := dev.opened[0]; got != (Format{SampleRate: 16000, Channels: 1, ChunkSize: 1024}) {
		t.Fatalf("stream opened with %+v", got)
	}
}

func TestHeaderMatchesConfiguredFormat(t *testing.T) {
	cases := []struct {
		rate, channels, chunk int
	}{
		{8000, 1, 160},
		{16000, 2, 512},
		{44100, 2, 1024},
		{48000, 6, 256},
	}
	for _, c := range cases {
		f := Format{SampleRate: c.rate, Channels: c.channels, ChunkSize: c.chunk}
		stream := newFakeStream(chunkOf(f.ChunkBytes()))
		dev := &fakeDevice{streams: []*fakeStream{stream}}
		cfg := DefaultConfig("")
		cfg.SampleRate, cfg.Channels, cfg.ChunkSize = c.rate, c.channels, c.chunk
		rec := newTestRecorder(t, dev, cfg)

		if err := rec.Start(); err != nil {
			t.Fatalf("start %+v: %v", c, err)
		}
		waitDrained(t, stream)
		if err := rec.Stop(); err != nil {
			t.Fatalf("stop %+v: %v", c, err)
		}
		info, err := wavfile.ReadInfo(rec.AudioFilePath())
		if err != nil {
			t.Fatalf("read %+v: %v", c, err)
		}
		if info.SampleRate != c.rate || info.Channels != c.channels || info.BitDepth != 16 {
			t.Fatalf("header %+v for %+v", info, c)
		}
		if info.DataBytes != f.ChunkBytes() {
			t.Fatalf("data %d want %d", info.DataBytes, f.ChunkBytes())
		}
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	dev := &fakeDevice{}
	rec := newTestRecorder(t, dev, DefaultConfig(""))
	if err := rec.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := os.Stat(rec.AudioFilePath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no file expected, stat err=%v", err)
	}
	if len(dev.opened) != 0 {
		t.Fatalf("device should not be opened")
	}
}

func TestStartTwiceKeepsFirstSession(t *testing.T) {
	first := newFakeStream(chunkOf(2048))
	second := newFakeStream(chunkOf(4096))
	dev := &fakeDevice{streams: []*fakeStream{first, second}}
	rec := newTestRecorder(t, dev, DefaultConfig(""))

	if err := rec.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDrained(t, first)
	if err := rec.Start(); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if len(dev.opened) != 1 {
		t.Fatalf("second start opened another stream")
	}
	if first.closeCount() != 0 {
		t.Fatalf("first stream closed by second start")
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	info, err := wavfile.ReadInfo(rec.AudioFilePath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if info.DataBytes != 2048 {
		t.Fatalf("first session frames lost: %d bytes", info.DataBytes)
	}
}

func TestImmediateReadFailureKeepsPreviousFile(t *testing.T) {
	stream := newFakeStream(readResult{err: errDeviceGone})
	dev := &fakeDevice{streams: []*fakeStream{stream}}
	rec := newTestRecorder(t, dev, DefaultConfig(""))
	if err := os.WriteFile(rec.AudioFilePath(), []byte("previous take"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := rec.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDrained(t, stream)
	if err := rec.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	data, err := os.ReadFile(rec.AudioFilePath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "previous take" {
		t.Fatalf("previous file overwritten")
	}
}

func TestImmediateReadFailureWritesNothing(t *testing.T) {
	stream := newFakeStream(readResult{err: errDeviceGone})
	dev := &fakeDevice{streams: []*fakeStream{stream}}
	rec := newTestRecorder(t, dev, DefaultConfig(""))

	if err := rec.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDrained(t, stream)
	if err := rec.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := os.Stat(rec.AudioFilePath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no file, stat err=%v", err)
	}
}

func TestReadFailureKeepsPartialRecording(t *testing.T) {
	stream := newFakeStream(chunkOf(2048), readResult{err: errDeviceGone}, chunkOf(2048))
	dev := &fakeDevice{streams: []*fakeStream{stream}}
	rec := newTestRecorder(t, dev, DefaultConfig(""))

	if err := rec.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := rec.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	info, err := wavfile.ReadInfo(rec.AudioFilePath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if info.DataBytes != 2048 {
		t.Fatalf("expected only the chunk before the failure, got %d bytes", info.DataBytes)
	}
}

func TestOverflowSkipsChunk(t *testing.T) {
	stream := newFakeStream(chunkOf(2048), readResult{err: ErrInputOverflowed}, chunkOf(2048))
	dev := &fakeDevice{streams: []*fakeStream{stream}}
	rec := newTestRecorder(t, dev, DefaultConfig(""))

	if err := rec.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDrained(t, stream)
	if err := rec.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	info, err := wavfile.ReadInfo(rec.AudioFilePath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if info.DataBytes != 4096 {
		t.Fatalf("capture should continue after overflow, got %d bytes", info.DataBytes)
	}
}

func TestStopReturnsWithinTimeoutWhenReadBlocks(t *testing.T) {
	stream := newFakeStream()
	dev := &fakeDevice{streams: []*fakeStream{stream}}
	rec := newTestRecorder(t, dev, DefaultConfig(""))

	if err := rec.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDrained(t, stream)
	begin := time.Now()
	if err := rec.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Fatalf("stop blocked for %s", elapsed)
	}
	if stream.closeCount() != 1 {
		t.Fatalf("stream not released")
	}
}

func TestStartAfterStopOpensFreshSession(t *testing.T) {
	first := newFakeStream(chunkOf(2048), chunkOf(2048))
	second := newFakeStream(chunkOf(2048))
	dev := &fakeDevice{streams: []*fakeStream{first, second}}
	rec := newTestRecorder(t, dev, DefaultConfig(""))

	for i, s := range []*fakeStream{first, second} {
		if err := rec.Start(); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		waitDrained(t, s)
		if err := rec.Stop(); err != nil {
			t.Fatalf("stop %d: %v", i, err)
		}
	}
	info, err := wavfile.ReadInfo(rec.AudioFilePath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if info.DataBytes != 2048 {
		t.Fatalf("frame buffer not reset between sessions: %d bytes", info.DataBytes)
	}
}

func TestUnsupportedFormatIsExplicitError(t *testing.T) {
	dev := &fakeDevice{openErr: ErrUnsupportedFormat}
	rec := newTestRecorder(t, dev, DefaultConfig(""))
	if err := rec.Start(); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if rec.Active() {
		t.Fatalf("failed start must not leave recorder active")
	}
}

func TestOpenErrorIsWrapped(t *testing.T) {
	dev := &fakeDevice{openErr: errDeviceGone}
	rec := newTestRecorder(t, dev, DefaultConfig(""))
	if err := rec.Start(); !errors.Is(err, errDeviceGone) {
		t.Fatalf("expected wrapped device error, got %v", err)
	}
}

func TestCloseReleasesOnce(t *testing.T) {
	stream := newFakeStream(chunkOf(2048))
	dev := &fakeDevice{streams: []*fakeStream{stream}}
	rec := newTestRecorder(t, dev, DefaultConfig(""))

	if err := rec.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDrained(t, stream)
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if dev.closes != 1 {
		t.Fatalf("device closed %d times", dev.closes)
	}
	if stream.closeCount() != 1 {
		t.Fatalf("stream closed %d times", stream.closeCount())
	}
	if _, err := os.Stat(rec.AudioFilePath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("close must not save the session")
	}
	if err := rec.Start(); !errors.Is(err, ErrClosed) {
		t.Fatalf("start after close: %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "a.wav"))
	cfg.ChunkSize = 0
	if _, err := New(&fakeDevice{}, cfg, logging.NewTestLogger()); err == nil {
		t.Fatalf("expected error for zero chunk size")
	}
	cfg = DefaultConfig("")
	if _, err := New(&fakeDevice{}, cfg, logging.NewTestLogger()); err == nil {
		t.Fatalf("expected error for empty output path")
	}
}

func TestNewCreatesOutputDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whisper_stt", "recording.wav")
	rec, err := New(&fakeDevice{}, DefaultConfig(path), logging.NewTestLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if rec.AudioFilePath() != path {
		t.Fatalf("path %q", rec.AudioFilePath())
	}
	if fi, err := os.Stat(filepath.Dir(path)); err != nil || !fi.IsDir() {
		t.Fatalf("output dir missing: %v", err)
	}
}
