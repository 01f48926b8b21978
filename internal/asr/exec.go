package asr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"whisperstt/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

const audioPlaceholder = "{audio}"

// execTranscriber shells out to an external recognizer (e.g. whisper-cli)
// and reads the transcript from stdout.
type execTranscriber struct {
	argv    []string
	timeout time.Duration
	logger  *logrus.Logger
}

func newExecTranscriber(cfg *config.Config, logger *logrus.Logger) (Transcriber, error) {
	argv, err := shlex.Split(cfg.ASR.Command)
	if err != nil {
		return nil, fmt.Errorf("parse asr.command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("asr.command is empty; required for the exec backend")
	}
	return &execTranscriber{
		argv:    argv,
		timeout: time.Duration(cfg.ASR.TimeoutSec * float64(time.Second)),
		logger:  logger,
	}, nil
}

func (t *execTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	args := make([]string, 0, len(t.argv))
	substituted := false
	for _, a := range t.argv[1:] {
		if strings.Contains(a, audioPlaceholder) {
			a = strings.ReplaceAll(a, audioPlaceholder, path)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, path)
	}

	runCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, t.argv[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("asr command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	t.logger.WithFields(logrus.Fields{
		"command": t.argv[0],
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	}).Debug("asr command finished")
	return joinSegments(strings.Split(stdout.String(), "\n")), nil
}

func (t *execTranscriber) Close() error { return nil }
