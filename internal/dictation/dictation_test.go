package dictation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"whisperstt/internal/logging"
)

type fakeRecorder struct {
	path     string
	active   bool
	starts   int
	stops    int
	onStop   func()
	startErr error
}

func (r *fakeRecorder) Start() error {
	if r.startErr != nil {
		return r.startErr
	}
	r.starts++
	r.active = true
	return nil
}

func (r *fakeRecorder) Stop() error {
	if !r.active {
		return nil
	}
	r.stops++
	r.active = false
	if r.onStop != nil {
		r.onStop()
	}
	return nil
}

func (r *fakeRecorder) Active() bool          { return r.active }
func (r *fakeRecorder) AudioFilePath() string { return r.path }

type fakeTranscriber struct {
	texts []string
	calls []string
	err   error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return "", f.err
	}
	t := f.texts[0]
	f.texts = f.texts[1:]
	return t, nil
}

func (f *fakeTranscriber) Close() error { return nil }

type fixedSpeech bool

func (s fixedSpeech) HasSpeech(string) (bool, error) { return bool(s), nil }

func writeAudio(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
}

func TestToggleStartsAndStops(t *testing.T) {
	rec := &fakeRecorder{path: filepath.Join(t.TempDir(), "recording.wav")}
	c := New(rec, &fakeTranscriber{}, Options{}, logging.NewTestLogger())

	on, err := c.Toggle()
	if err != nil || !on {
		t.Fatalf("first toggle on=%v err=%v", on, err)
	}
	on, err = c.Toggle()
	if err != nil || on {
		t.Fatalf("second toggle on=%v err=%v", on, err)
	}
	if rec.starts != 1 || rec.stops != 1 {
		t.Fatalf("starts=%d stops=%d", rec.starts, rec.stops)
	}
}

func TestToggleSurfacesStartError(t *testing.T) {
	boom := errors.New("busy")
	rec := &fakeRecorder{startErr: boom}
	c := New(rec, &fakeTranscriber{}, Options{}, logging.NewTestLogger())
	if _, err := c.Toggle(); !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
}

func TestTranscribeStopsActiveRecording(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording.wav")
	rec := &fakeRecorder{path: path, active: true}
	rec.onStop = func() { writeAudio(t, path) }
	tr := &fakeTranscriber{texts: []string{"  hello there  "}}
	history := filepath.Join(dir, "transcripts.log")
	c := New(rec, tr, Options{Speech: fixedSpeech(true), TranscriptPath: history}, logging.NewTestLogger())

	text, err := c.Transcribe(context.Background())
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "hello there" {
		t.Fatalf("text=%q", text)
	}
	if rec.stops != 1 || rec.active {
		t.Fatalf("recording not stopped first")
	}
	if len(tr.calls) != 1 || tr.calls[0] != path {
		t.Fatalf("transcriber calls %v", tr.calls)
	}
	data, err := os.ReadFile(history)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(string(data)), "\thello there") {
		t.Fatalf("history line %q", data)
	}
}

func TestTranscribeWithoutRecording(t *testing.T) {
	rec := &fakeRecorder{path: filepath.Join(t.TempDir(), "recording.wav")}
	tr := &fakeTranscriber{}
	c := New(rec, tr, Options{}, logging.NewTestLogger())
	if _, err := c.Transcribe(context.Background()); !errors.Is(err, ErrNoRecording) {
		t.Fatalf("expected ErrNoRecording, got %v", err)
	}
	if len(tr.calls) != 0 {
		t.Fatalf("transcriber should not be called")
	}
}

func TestTranscribeRejectsSilence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.wav")
	writeAudio(t, path)
	tr := &fakeTranscriber{}
	c := New(&fakeRecorder{path: path}, tr, Options{Speech: fixedSpeech(false)}, logging.NewTestLogger())
	if _, err := c.Transcribe(context.Background()); !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech, got %v", err)
	}
	if len(tr.calls) != 0 {
		t.Fatalf("transcriber should not be called")
	}
}

func TestTranscribeErrorIsSurfaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.wav")
	writeAudio(t, path)
	boom := errors.New("model missing")
	c := New(&fakeRecorder{path: path}, &fakeTranscriber{err: boom}, Options{}, logging.NewTestLogger())
	if _, err := c.Transcribe(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected model error, got %v", err)
	}
	if c.Text() != "" {
		t.Fatalf("failed transcription must not change text")
	}
}

func TestTextAppendClearSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording.wav")
	writeAudio(t, path)
	tr := &fakeTranscriber{texts: []string{"first", "", "second"}}
	c := New(&fakeRecorder{path: path}, tr, Options{}, logging.NewTestLogger())

	for i := 0; i < 3; i++ {
		if _, err := c.Transcribe(context.Background()); err != nil {
			t.Fatalf("transcribe %d: %v", i, err)
		}
	}
	if got := c.Text(); got != "first\nsecond" {
		t.Fatalf("text=%q", got)
	}
	if n := len(c.Transcripts()); n != 2 {
		t.Fatalf("transcripts=%d", n)
	}

	out := filepath.Join(dir, "notes", "dictation.txt")
	if err := c.Save(out); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "first\nsecond\n" {
		t.Fatalf("saved %q", data)
	}

	c.Clear()
	if c.Text() != "" {
		t.Fatalf("clear left text")
	}
	if err := c.Save(out); err == nil {
		t.Fatalf("saving empty text should fail")
	}
}
