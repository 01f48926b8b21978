package control

import (
	"errors"
	"fmt"
	"os"

	"whisperstt/internal/dictation"

	"github.com/spf13/cobra"
)

// NewTranscribeCmd transcribes a WAV file, by default the last recording.
func NewTranscribeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe [wavfile]",
		Short: "Transcribe the last recording or the given WAV file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime(*cfgPath)
			if err != nil {
				return err
			}
			path := cfg.Paths.AudioFile
			if len(args) == 1 {
				path = args[0]
			}
			ctrl, closeASR, err := newController(cfg, logger, fileRecorder{path: path})
			if err != nil {
				return err
			}
			defer func() { _ = closeASR() }()

			text, err := ctrl.Transcribe(cmd.Context())
			if err != nil {
				if errors.Is(err, dictation.ErrNoRecording) {
					return fmt.Errorf("%w: %s does not exist; run 'whisperstt record' first", err, path)
				}
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), text)

			if out, _ := cmd.Flags().GetString("out"); out != "" {
				if err := ctrl.Save(out); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(os.Stderr, "saved %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().String("out", "", "also save the text to this file")
	return cmd
}
