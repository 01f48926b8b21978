package control

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"whisperstt/internal/config"

	"github.com/spf13/cobra"
)

const modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// simple registry of known ggml models.
var modelRegistry = map[string]string{
	"ggml-tiny.en.bin":             modelBaseURL + "ggml-tiny.en.bin",
	"ggml-base.en.bin":             modelBaseURL + "ggml-base.en.bin",
	"ggml-base.bin":                modelBaseURL + "ggml-base.bin",
	"ggml-small-q5_1.bin":          modelBaseURL + "ggml-small-q5_1.bin",
	"ggml-medium-q5_1.bin":         modelBaseURL + "ggml-medium-q5_1.bin",
	"ggml-large-v3-turbo-q8_0.bin": modelBaseURL + "ggml-large-v3-turbo-q8_0.bin",
}

// NewModelsCmd wires up the models subcommands (list/download/set).
func NewModelsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List/download/set whisper models",
	}
	cmd.AddCommand(newModelsListCmd(cfgPath))
	cmd.AddCommand(newModelsDownloadCmd(cfgPath))
	cmd.AddCommand(newModelsSetCmd(cfgPath))
	return cmd
}

func newModelsListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known models and those present locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			local := map[string]bool{}
			entries, _ := os.ReadDir(cfg.Paths.ModelDir)
			for _, e := range entries {
				if !e.IsDir() {
					local[e.Name()] = true
				}
			}
			names := make([]string, 0, len(modelRegistry))
			for n := range modelRegistry {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				mark := ""
				if local[n] {
					mark = "(downloaded)"
				}
				if filepath.Join(cfg.Paths.ModelDir, n) == cfg.ASR.ModelPath {
					mark = strings.TrimSpace(mark + " (active)")
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "- %s %s\n", n, mark)
			}
			return nil
		},
	}
}

func newModelsDownloadCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "download <model>",
		Short: "Download a model from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			name := args[0]
			url, ok := modelRegistry[name]
			if !ok {
				return fmt.Errorf("unknown model %q; run models list", name)
			}
			dest := filepath.Join(cfg.Paths.ModelDir, name)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "downloading %s -> %s\n", name, dest)
			return downloadFile(url, dest)
		},
	}
}

func newModelsSetCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <model-name-or-path>",
		Short: "Set asr.model_path in config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			cfg.ASR.ModelPath = resolveModelPath(cfg.Paths.ModelDir, args[0])
			if err := config.Save(cfg, cfg.Paths.ConfigPath); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "model set to %s\n", cfg.ASR.ModelPath)
			return nil
		},
	}
}

// resolveModelPath treats bare names as files inside modelDir.
func resolveModelPath(modelDir, val string) string {
	if strings.ContainsAny(val, `/\`) {
		return val
	}
	return filepath.Join(modelDir, val)
}

// downloadFile fetches url into dest via a .part file.
func downloadFile(url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
