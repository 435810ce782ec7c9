package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inquestai/inquest/internal/config"
)

var (
	configFile string
	verbose    bool

	// cfg is populated by loadConfig before any command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "inquest",
	Short: "inquest - SOC investigation plan executor",
	Long: `inquest executes multi-step investigation plans against a security
event store. Plans declare steps, the tools they invoke, and the
dependencies between them; inquest resolves the dependency graph, runs
independent steps concurrently, and compiles an auditable report.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// loadConfig is called before any command runs to load configuration.
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	path := configFile
	if path == "" {
		path = os.Getenv("INQUEST_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath()
	}

	loaded, err := config.NewLoader(config.NewValidator()).LoadWithDefaults(path)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "inquest.yaml"
	}
	return filepath.Join(home, ".inquest", "inquest.yaml")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default ~/.inquest/inquest.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(versionCmd)
}
