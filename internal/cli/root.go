package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/version"
)

type Dependencies struct {
	ConfigPath string
}

// LoadConfig honours --config, falling back to CONFIG_ENV.
func (d *Dependencies) LoadConfig() (*config.Config, error) {
	if d.ConfigPath != "" {
		return config.LoadFile(d.ConfigPath)
	}
	return config.Load()
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "meet",
		Short:         "Real-time meeting room coordinator",
		Long:          "Serves meeting rooms over websockets: membership, chat, and WebRTC signaling relay.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.PersistentFlags().StringVarP(&deps.ConfigPath, "config", "c", "", "Config file (default config/config.$CONFIG_ENV.yaml)")

	rootCmd.AddCommand(NewServeCmd(deps))
	rootCmd.AddCommand(NewTokenCmd(deps))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		},
	}
}
