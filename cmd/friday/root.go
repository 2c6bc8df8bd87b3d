package main

import (
	"github.com/aatumaykin/friday/internal/config"
	"github.com/spf13/cobra"
)

var (
	configDir string
	debug     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "friday",
	Short: "Friday - recurring job runner",
	Long: `Friday runs jobs defined in YAML files on cron schedules. Every run gets
its own timestamped directory holding the output of each step and the
artifacts collected from the job's workspaces.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", config.DefaultConfigDir, "Configuration directory holding config.yml and jobs/")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Log at debug level")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(jobsCmd)
}
