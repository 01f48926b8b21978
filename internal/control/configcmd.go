package control

import (
	"fmt"

	"whisperstt/internal/config"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// NewConfigCmd prints the effective configuration (file plus env overrides).
func NewConfigCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged config as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			out, err := toml.Marshal(cfg)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "# %s\n", cfg.Paths.ConfigPath)
			_, _ = w.Write(out)
			return nil
		},
	})
	return cmd
}
