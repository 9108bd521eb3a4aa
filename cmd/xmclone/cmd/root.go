// Package cmd provides the CLI commands for xmclone.
package cmd

import (
	"os"

	"github.com/homemade/xmclone/clone"
	"github.com/spf13/cobra"
)

var (
	// configDir holds required.yaml, defaults.yaml and deployments/
	configDir string
	// deployment selects deployments/<name>.yaml
	deployment string
)

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd creates a fresh command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xmclone",
		Short: "Clone xMatters events in response to notification responses",
		Long: `xmclone receives xMatters notification response webhooks and re-triggers
the responded-to event on another form, reshaping its properties on the way.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "directory holding required.yaml, defaults.yaml and deployments/")
	cmd.PersistentFlags().StringVarP(&deployment, "deployment", "d", "", "deployment config to load from deployments/<name>.yaml")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCloneCmd())

	return cmd
}

func loadConfig() (clone.Config, error) {
	return clone.LoadConfig(clone.ConfigFiles{Root: ".", Files: os.DirFS(configDir)}, deployment)
}
