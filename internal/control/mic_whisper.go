//go:build whisper

package control

import (
	"encoding/json"
	"fmt"
	"runtime"

	"whisperstt/internal/capture"
	"whisperstt/internal/config"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"
)

// NewMicCmd groups mic subcommands (whisper build).
func NewMicCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mic",
		Aliases: []string{"microphone", "mics"},
		Short:   "Microphone management",
	}
	cmd.AddCommand(newMicListCmd(cfgPath))
	cmd.AddCommand(newMicSetCmd(cfgPath))
	return cmd
}

func newMicListCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available microphones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if err := portaudio.Initialize(); err != nil {
				return fmt.Errorf("portaudio init: %w", err)
			}
			defer func() { _ = portaudio.Terminate() }()

			devs, err := portaudio.Devices()
			if err != nil {
				return err
			}
			type mic struct {
				Index      int     `json:"index"`
				Name       string  `json:"name"`
				Channels   int     `json:"channels"`
				SampleRate float64 `json:"default_sample_rate"`
				LatencyMs  float64 `json:"latency_ms"`
				Selected   bool    `json:"selected"`
			}
			// the device Start would open with the current audio.device_name
			sel, _ := capture.SelectDevice(cfg.Audio.DeviceName)
			out := []mic{}
			for i, d := range devs {
				if d.MaxInputChannels < 1 {
					continue
				}
				out = append(out, mic{
					Index:      i,
					Name:       d.Name,
					Channels:   d.MaxInputChannels,
					SampleRate: d.DefaultSampleRate,
					LatencyMs:  d.DefaultLowInputLatency.Seconds() * 1000,
					Selected:   sel != nil && d.Name == sel.Name,
				})
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}
			w := cmd.OutOrStdout()
			for _, m := range out {
				mark := ""
				if m.Selected {
					mark = " *"
				}
				_, _ = fmt.Fprintf(w, "[%d] %s%s (in %d ch, %.0f Hz, latency %.2fms)\n", m.Index, m.Name, mark, m.Channels, m.SampleRate, m.LatencyMs)
			}
			switch {
			case len(out) == 0 && runtime.GOOS == "darwin":
				_, _ = fmt.Fprintln(w, "no input devices; check microphone permission for your terminal")
			case len(out) == 0:
				_, _ = fmt.Fprintln(w, "no input devices found")
			case cfg.Audio.SampleRate > 0:
				_, _ = fmt.Fprintf(w, "* used for recording at %d Hz, %d ch\n", cfg.Audio.SampleRate, cfg.Audio.Channels)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}
