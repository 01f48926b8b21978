package main

import (
	"fmt"
	"os"

	"whisperstt/internal/control"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "whisperstt",
		Short: "whisperstt: record from the mic and transcribe locally with whisper.cpp",
		Long: `whisperstt records microphone audio to a fixed WAV file, transcribes it locally
(whisper.cpp in-process, or an external command), and prints the text.

Key commands:
  record [--duration d] [--transcribe]   Record until Enter/Ctrl-C or for a duration
  transcribe [file.wav]                  Transcribe the last recording (or a file)
  dictate                                Interactive toggle/transcribe/clear/save loop
  path [-v]                              Print the recording path
  mic list|set                           Select microphone (alias: microphone, mics)
  doctor|setup                           Check deps / download default model
  models list|download|set               Manage whisper.cpp models
  config show|tail-log|test-hook         Inspect config, log tail, manual hook

Env overrides: WHISPERSTT_LOG_LEVEL/FORMAT, WHISPERSTT_MODEL, WHISPERSTT_ASR_BACKEND,
               WHISPERSTT_AUDIO_DEVICE, WHISPERSTT_TRANSCRIPTS_ENABLED, WHISPERSTT_REDACT_PII`,
		Example: `  whisperstt record --duration 5s --transcribe
  whisperstt transcribe
  whisperstt dictate
  whisperstt mic list
  whisperstt models download ggml-base.en.bin
  whisperstt test-hook "make it so"`,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		SilenceErrors:         true,
	}

	root.Version = version
	root.SetVersionTemplate("whisperstt v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/whisperstt/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(control.NewRecordCmd(cfgPath))
	root.AddCommand(control.NewTranscribeCmd(cfgPath))
	root.AddCommand(control.NewDictateCmd(cfgPath))
	root.AddCommand(control.NewPathCmd(cfgPath))
	root.AddCommand(control.NewMicCmd(cfgPath))
	root.AddCommand(control.NewModelsCmd(cfgPath))
	root.AddCommand(control.NewSetupCmd(cfgPath))
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewConfigCmd(cfgPath))
	root.AddCommand(control.NewTestHookCmd(cfgPath))
	root.AddCommand(control.NewTailLogCmd(cfgPath))

	applyColorHelp(root)

	return root.Execute()
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	defaultHelp := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != root {
			defaultHelp(cmd, args)
			return
		}
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%swhisperstt%s: local speech-to-text %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sRecords the mic to a WAV file, transcribes it locally, optionally runs your hook.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  whisperstt [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  record [--duration d]       record until Enter/Ctrl-C (or for d)")
		writeln("  transcribe [file.wav]       transcribe the last recording")
		writeln("  dictate                     interactive toggle/transcribe/clear/save")
		writeln("  path [-v]                   print the recording path")
		writeln("  mic list|set                select input device (alias: microphone, mics)")
		writeln("  doctor                      check deps/model/hook/portaudio")
		writeln("  setup                       download default whisper model")
		writeln("  models list|download|set    manage whisper.cpp models")
		writeln("  config show                 print the effective config")
		writeln("  tail-log                    show last log lines")
		writeln("  test-hook \"text\"            invoke hook manually")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  -c, --config <path>     config file (default ~/.config/whisperstt/config.toml)")
		writeln("  Env: WHISPERSTT_LOG_LEVEL=debug, WHISPERSTT_LOG_FORMAT=json,")
		writeln("       WHISPERSTT_MODEL=/path/model.bin, WHISPERSTT_ASR_BACKEND=exec,")
		writeln("       WHISPERSTT_TRANSCRIPTS_ENABLED=0, WHISPERSTT_REDACT_PII=1")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  whisperstt record --duration 5s --transcribe")
		writeln("  whisperstt mic set \"MacBook Pro Microphone\"")
		writeln("  whisperstt models download ggml-base.en.bin")
		writeln("  whisperstt models set ggml-base.en.bin")
		writeln("  whisperstt test-hook \"make it so\"")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
