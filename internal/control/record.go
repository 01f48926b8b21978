package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"whisperstt/internal/dictation"

	"github.com/spf13/cobra"
)

// NewRecordCmd records one take into the fixed audio file.
func NewRecordCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the microphone until Enter, Ctrl-C or --duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime(*cfgPath)
			if err != nil {
				return err
			}
			duration, _ := cmd.Flags().GetDuration("duration")
			transcribe, _ := cmd.Flags().GetBool("transcribe")
			outPath, _ := cmd.Flags().GetString("out")

			rec, err := openRecorder(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = rec.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := rec.Start(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "recording at %d Hz, %d ch; press Enter to stop\n", cfg.Audio.SampleRate, cfg.Audio.Channels)
			waitForStop(ctx, cmd.InOrStdin(), duration)
			if err := rec.Stop(); err != nil {
				return err
			}
			path := rec.AudioFilePath()
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("%w (nothing captured)", dictation.ErrNoRecording)
			}
			_, _ = fmt.Fprintf(out, "saved %s\n", path)

			if !transcribe {
				return nil
			}
			ctrl, closeASR, err := newController(cfg, logger, rec)
			if err != nil {
				return err
			}
			defer func() { _ = closeASR() }()
			text, err := ctrl.Transcribe(context.WithoutCancel(ctx))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, text)
			if outPath != "" {
				return ctrl.Save(outPath)
			}
			return nil
		},
	}
	cmd.Flags().Duration("duration", 0, "stop automatically after this long (e.g. 10s)")
	cmd.Flags().Bool("transcribe", false, "transcribe the recording when it stops")
	cmd.Flags().String("out", "", "with --transcribe, also save the text to this file")
	return cmd
}

// waitForStop returns on Enter, context cancellation or after d (when > 0).
func waitForStop(ctx context.Context, in io.Reader, d time.Duration) {
	enter := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(in).ReadString('\n')
		close(enter)
	}()
	var timeout <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-enter:
	case <-ctx.Done():
	case <-timeout:
	}
}

// NewDictateCmd runs an interactive loop mirroring the record/transcribe/
// clear/save actions of a dictation window.
func NewDictateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dictate",
		Short: "Interactive dictation: Enter toggles recording, t transcribes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime(*cfgPath)
			if err != nil {
				return err
			}
			rec, err := openRecorder(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = rec.Close() }()
			ctrl, closeASR, err := newController(cfg, logger, rec)
			if err != nil {
				return err
			}
			defer func() { _ = closeASR() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return dictateLoop(ctx, ctrl, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

type action int

const (
	actToggle action = iota
	actTranscribe
	actClear
	actSave
	actPrint
	actHelp
	actQuit
	actUnknown
)

func parseAction(line string) (action, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return actToggle, ""
	}
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(verb) {
	case "r", "rec", "record":
		return actToggle, ""
	case "t", "transcribe":
		return actTranscribe, ""
	case "c", "clear":
		return actClear, ""
	case "s", "save":
		return actSave, arg
	case "p", "print":
		return actPrint, ""
	case "h", "help", "?":
		return actHelp, ""
	case "q", "quit", "exit":
		return actQuit, ""
	}
	return actUnknown, verb
}

const dictateHelp = `Enter/r  start or stop recording
t        transcribe the last recording (stops recording first)
p        print the text so far
c        clear the text
s FILE   save the text to FILE
q        quit`

func dictateLoop(ctx context.Context, ctrl *dictation.Controller, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()
	say := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format+"\n", args...) }
	say("%s", dictateHelp)

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}
		act, arg := parseAction(line)
		switch act {
		case actToggle:
			on, err := ctrl.Toggle()
			switch {
			case err != nil:
				say("error: %v", err)
			case on:
				say("recording…")
			default:
				say("stopped")
			}
		case actTranscribe:
			say("transcribing…")
			text, err := ctrl.Transcribe(ctx)
			switch {
			case errors.Is(err, dictation.ErrNoRecording), errors.Is(err, dictation.ErrNoSpeech):
				say("%v", err)
			case err != nil:
				say("error: %v", err)
			case text == "":
				say("(empty transcript)")
			default:
				say("%s", text)
			}
		case actPrint:
			say("%s", ctrl.Text())
		case actClear:
			ctrl.Clear()
			say("cleared")
		case actSave:
			if arg == "" {
				say("usage: s FILE")
				continue
			}
			if err := ctrl.Save(arg); err != nil {
				say("error: %v", err)
				continue
			}
			say("saved %s", arg)
		case actHelp:
			say("%s", dictateHelp)
		case actQuit:
			return nil
		default:
			say("unknown command %q (h for help)", arg)
		}
	}
}
