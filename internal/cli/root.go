// Package cli provides the reminisce command-line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reminisce-ai/reminisce/internal/daemon"
)

var rootCmd = &cobra.Command{
	Use:   "reminisce",
	Short: "Credit-gated AI generation gateway for old photographs",
	Long: `Reminisce turns old photographs into AI-generated artifacts: a stylized
re-rendering, a short nostalgic story, and a synthesized spoken soundscape.
Access is gated by a prepaid credit balance; each generation debits one
credit, and only when it succeeds.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", defaultConfigPath(), "Path to the TOML config file")
	serveCmd.Flags().Int("port", 0, "Override the listen port")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.API.Port = port
	}
	return daemon.Run(cfg)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".reminisce", "config.toml")
}
