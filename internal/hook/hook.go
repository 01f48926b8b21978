package hook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"whisperstt/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// ErrNoCommand is returned by Run when hook.command is empty.
var ErrNoCommand = errors.New("no hook.command configured")

// Job represents a hook invocation request.
type Job struct {
	Text      string
	Timestamp time.Time
}

// Runner pipes transcripts into a user command.
type Runner struct {
	cfg      *config.Config
	logger   *logrus.Logger
	hostname string
}

func NewRunner(cfg *config.Config, logger *logrus.Logger) *Runner {
	host, _ := os.Hostname()
	return &Runner{
		cfg:      cfg,
		logger:   logger,
		hostname: host,
	}
}

// Enabled reports whether a hook command is configured.
func (r *Runner) Enabled() bool {
	return strings.TrimSpace(r.cfg.Hook.Command) != ""
}

// Run executes the configured command with the text as last argument.
func (r *Runner) Run(ctx context.Context, job Job) error {
	cmdStr := strings.TrimSpace(r.cfg.Hook.Command)
	if cmdStr == "" {
		return ErrNoCommand
	}
	argv, err := ParseArgs(cmdStr)
	if err != nil {
		return fmt.Errorf("parse hook.command: %w", err)
	}
	if len(argv) == 0 {
		return ErrNoCommand
	}
	args := append(argv[1:], r.cfg.Hook.Args...)

	prefix := strings.ReplaceAll(r.cfg.Hook.Prefix, "${hostname}", r.hostname)
	text := job.Text
	if r.cfg.Hook.RedactPII {
		text = redactPII(text)
	}
	payload := strings.TrimSpace(prefix + text)
	args = append(args, payload)

	runCtx := ctx
	if r.cfg.Hook.TimeoutSec > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(float64(time.Second)*r.cfg.Hook.TimeoutSec))
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, argv[0], args...)
	cmd.Env = os.Environ()
	for k, v := range r.cfg.Hook.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env, fmt.Sprintf("WHISPERSTT_TEXT=%s", text))
	cmd.Env = append(cmd.Env, fmt.Sprintf("WHISPERSTT_PREFIX=%s", prefix))
	cmd.Env = append(cmd.Env, fmt.Sprintf("WHISPERSTT_TIMESTAMP=%s", job.Timestamp.Format(time.RFC3339)))

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		r.logger.Infof("hook output: %s", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return fmt.Errorf("hook failed: %w", err)
	}
	return nil
}

// ParseArgs splits a shell-quoted command line.
func ParseArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	return shlex.Split(raw)
}

var (
	emailRE = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.[A-Za-z]{2,}`)
	phoneRE = regexp.MustCompile(`\+?\d[\d\s\-\(\)]{6,}\d`)
)

func redactPII(s string) string {
	s = emailRE.ReplaceAllString(s, "[redacted-email]")
	s = phoneRE.ReplaceAllString(s, "[redacted-phone]")
	return s
}
