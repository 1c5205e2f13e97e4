package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"igpublisher/pkg/config"
	"igpublisher/pkg/logger"
	"igpublisher/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noLogo     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igpublisher",
	Short: "Publish images to an Instagram business account through the Graph API",
	Long: `igpublisher publishes a single image, with an optional caption, to an
Instagram business or creator account using the Instagram Graph API.

A publish runs in three steps:
  - create a media container from a public image URL
  - poll the container until Instagram has finished processing it
  - publish the container and report the new media id

Run it once from the command line with 'igpublisher publish', or start the
HTTP service with 'igpublisher serve' to expose POST /api/instagram/publish.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Don't show logo for certain commands
		if noLogo {
			return
		}
		switch cmd.Name() {
		case "version", "help", "completion", "serve":
			return
		}
		ui.PrintLogo()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err.Error())
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./igpublisher.yaml or $HOME/.config/igpublisher/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&noLogo, "no-logo", false, "do not print the banner")

	// Version template
	rootCmd.SetVersionTemplate(`igpublisher {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads configuration with the flags the user actually set on cmd
// merged on top, then initializes the global logger from it
func loadConfig(cmd *cobra.Command, names ...string) (*config.Config, error) {
	cfg, err := config.Load(configFile, changedFlags(cmd, append(names, "log-level")...))
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// changedFlags collects explicitly set flags in the shape
// config.MergeCommandLineFlags expects
func changedFlags(cmd *cobra.Command, names ...string) map[string]interface{} {
	flags := make(map[string]interface{})
	for _, name := range names {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		switch f.Value.Type() {
		case "string":
			flags[name], _ = cmd.Flags().GetString(name)
		case "duration":
			flags[name], _ = cmd.Flags().GetDuration(name)
		case "bool":
			flags[name], _ = cmd.Flags().GetBool(name)
		}
	}
	return flags
}
