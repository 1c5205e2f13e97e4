package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igpublisher/pkg/auth"
	"igpublisher/pkg/config"
	"igpublisher/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igpublisher configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IGPUBLISHER_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)

Account credentials are not configuration; see 'igpublisher auth'.`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'igpublisher.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source, followed by
the credential source a publish would use, masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Log file accessibility
  - Whether publishing credentials are available`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# igpublisher configuration file
#
# Every option can also be set through environment variables prefixed with
# IGPUBLISHER_, for example IGPUBLISHER_PUBLISH_POLL_TIMEOUT=90s.
#
# The Instagram account id and access token are read from IG_USER_ID and
# IG_ACCESS_TOKEN, or stored with 'igpublisher auth login'.

# Graph API client
graph:
  base_url: "https://graph.facebook.com"
  api_version: "v20.0"

  # Timeout for a single Graph API request
  request_timeout: 30s

  # Client side cap on Graph API requests; 0 disables it
  requests_per_minute: 0

# Media container polling
publish:
  # Give up if the container is not FINISHED after this long
  poll_timeout: 60s

  # Delay between status checks
  poll_interval: 2s

# Retry of individual Graph API calls on network errors, 429 and 5xx.
# Off by default: a retried create may produce a duplicate container.
retry:
  enabled: false
  max_attempts: 3
  base_delay: 1s
  max_delay: 10s

# HTTP service ('igpublisher serve')
server:
  addr: ":8080"
  allowed_origins:
    - "*"
  shutdown_timeout: 10s

# Logging configuration
logging:
  # Log level: debug, info, warn, error, disabled
  level: "info"

  # Log format: text, json
  format: "text"

  # Log file path (optional); receives JSON lines
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "igpublisher.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			ui.PrintError("Failed to create configuration directory", err.Error())
			os.Exit(1)
		}
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store your credentials with 'igpublisher auth login'")
	fmt.Println("2. Run 'igpublisher config validate' to check the configuration")
	fmt.Println("3. Publish with 'igpublisher publish <image-url>' or start 'igpublisher serve'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, changedFlags(cmd, "log-level"))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (IGPUBLISHER_*)")
	fmt.Println("3. .env files")
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path != "" {
		fmt.Printf("4. Configuration file: %s\n", path)
	} else {
		fmt.Println("4. Configuration file: (none found)")
	}
	fmt.Println("5. Default values")

	fmt.Println()
	showCredentialSource()
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
		if path == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", path)

	cfg, err := config.Load(path, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	var warnings []string
	var problems []string

	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}
	if cfg.Publish.PollInterval >= cfg.Publish.PollTimeout {
		warnings = append(warnings, "poll_interval is not shorter than poll_timeout; only one status check will run")
	}
	if cfg.Retry.Enabled {
		warnings = append(warnings, "retry is enabled; a retried container creation may leave an unused container behind")
	}

	if manager, err := auth.NewManager(); err != nil {
		warnings = append(warnings, "Credential stores unavailable: "+err.Error())
	} else if _, err := manager.Resolve(); err != nil {
		warnings = append(warnings, err.Error())
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Graph endpoint: %s\n", cfg.Graph.Endpoint())
	fmt.Printf("  Poll timeout: %s\n", cfg.Publish.PollTimeout)
	fmt.Printf("  Poll interval: %s\n", cfg.Publish.PollInterval)
	fmt.Printf("  Retry: %t\n", cfg.Retry.Enabled)
	fmt.Printf("  Listen address: %s\n", cfg.Server.Addr)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}

func showCredentialSource() {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintWarning("Credential stores unavailable", err.Error())
		return
	}
	for _, status := range manager.Status() {
		if status.Found {
			ui.PrintInfo("Credentials", fmt.Sprintf("%s (account %s, token %s)",
				status.Store, status.Credentials.AccountID, status.Credentials.AccessToken))
			return
		}
	}
	ui.PrintWarning(auth.MissingCredentialsMessage)
}
