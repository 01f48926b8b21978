package control

import (
	"fmt"
	"os"
	"strings"
	"time"

	"whisperstt/internal/config"
	"whisperstt/internal/doctor"
	"whisperstt/internal/hook"
	"whisperstt/internal/wavfile"

	"github.com/spf13/cobra"
)

// NewPathCmd prints the fixed recording path and what is there.
func NewPathCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the recording path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, cfg.Paths.AudioFile)
			verbose, _ := cmd.Flags().GetBool("verbose")
			if !verbose {
				return nil
			}
			info, err := wavfile.ReadInfo(cfg.Paths.AudioFile)
			if err != nil {
				_, _ = fmt.Fprintf(out, "  (no usable recording: %v)\n", err)
				return nil
			}
			_, _ = fmt.Fprintf(out, "  %d Hz, %d ch, %d-bit, %s\n", info.SampleRate, info.Channels, info.BitDepth, info.Duration().Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().BoolP("verbose", "v", false, "also describe the recording on disk")
	return cmd
}

// NewTailLogCmd tails the main log file (simple last N lines).
func NewTailLogCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail-log",
		Short: "Show the last log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("lines")
			return tailFile(cmd, cfg.Paths.LogPath, n)
		},
	}
	cmd.Flags().IntP("lines", "n", 50, "number of lines")
	return cmd
}

func tailFile(cmd *cobra.Command, path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), l)
		}
	}
	return nil
}

// NewTestHookCmd triggers hook manually.
func NewTestHookCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "test-hook \"some text\"",
		Short: "Send sample text through hook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime(*cfgPath)
			if err != nil {
				return err
			}
			r := hook.NewRunner(cfg, logger)
			job := hook.Job{Text: args[0], Timestamp: time.Now()}
			return r.Run(cmd.Context(), job)
		},
	}
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check dependencies and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			results := doctor.Run(cfg)
			failed := false
			for _, r := range results {
				status := "ok"
				if !r.Pass {
					status = "fail"
					failed = true
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-13s %-4s %s\n", r.Name, status, r.Detail)
			}
			if failed {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}
