package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igpublisher/pkg/auth"
	"igpublisher/pkg/models"
	"igpublisher/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Graph API credentials",
	Long: `Manage the Instagram account id and access token used for publishing.

Credentials are resolved in this order:
  - IG_USER_ID and IG_ACCESS_TOKEN environment variables
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

Never share your access token or credential files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [account-id]",
	Short: "Store Graph API credentials securely",
	Long: `Store the Instagram account id and access token in the system keychain,
or in an encrypted file when no keychain is available.

You will be prompted for:
  - Instagram account id (if not provided)
  - Access token (hidden as you type)`,
	Example: `  # Interactive login
  igpublisher auth login

  # Login with account id
  igpublisher auth login 17841400000000000`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	Long: `Remove stored credentials from the keychain and the encrypted file.

Environment variables are not touched.`,
	Args: cobra.NoArgs,
	Run:  runLogout,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where credentials are found",
	Long:  `Show each credential source with sanitized contents, and which one a publish would use.`,
	Args:  cobra.NoArgs,
	Run:   runStatus,
}

var skipGuide bool

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)

	loginCmd.Flags().BoolVar(&skipGuide, "skip-guide", false, "do not print the token guide")
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	if !skipGuide {
		auth.ShowTokenGuide()

		fmt.Print("Ready to enter your credentials? (Y/n): ")
		ready, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(ready)) == "n" {
			fmt.Println("\nRun 'igpublisher auth login' when you're ready.")
			return
		}
		fmt.Println()
	}

	var accountID string
	if len(args) > 0 {
		accountID = strings.TrimSpace(args[0])
	}
	if accountID == "" {
		fmt.Print("📱 Instagram account id: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read account id", err.Error())
			os.Exit(1)
		}
		accountID = strings.TrimSpace(input)
	}
	if accountID == "" {
		ui.PrintError("Account id is required")
		os.Exit(1)
	}

	if existing, err := manager.Resolve(); err == nil && existing.AccountID != accountID {
		fmt.Printf("\n⚠️  Credentials for account '%s' are already available. Replace them? (y/N): ", existing.AccountID)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("\n🔐 Access token (hidden): ")
	token, err := readPassword(reader)
	if err != nil {
		ui.PrintError("Failed to read access token", err.Error())
		os.Exit(1)
	}
	if len(token) < 20 {
		ui.PrintError("That doesn't look like a Graph API access token")
		os.Exit(1)
	}

	fmt.Println("\n📋 Summary:")
	fmt.Printf("   Account id: %s\n", accountID)
	fmt.Printf("   Access token: %s (hidden)\n", auth.MaskToken(token))

	fmt.Println("\n💾 Storing credentials securely...")
	if err := manager.Store(&models.Credentials{AccountID: accountID, AccessToken: token}); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Credentials saved to " + manager.StoreName())

	if os.Getenv(auth.EnvAccountID) != "" || os.Getenv(auth.EnvAccessToken) != "" {
		ui.PrintWarning("Environment variables take precedence", auth.EnvAccountID+"/"+auth.EnvAccessToken)
	}

	fmt.Println("\n📖 Quick Start:")
	fmt.Println("   $ igpublisher publish https://cdn.example.com/photo.jpg --caption \"Hello\"")
	fmt.Println("   $ igpublisher serve")
	fmt.Println("\n⚠️  Never share your access token!")
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Remove stored credentials? (y/N): ")
	input, _ := reader.ReadString('\n')
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
		return
	}

	if err := manager.Delete(); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			ui.PrintWarning("No stored credentials found")
			return
		}
		ui.PrintError("Failed to remove credentials", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Credentials removed")
}

func runStatus(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Credential Sources")
	fmt.Println()

	for i, status := range manager.Status() {
		fmt.Printf("%d. %s\n", i+1, status.Store)
		switch {
		case status.Found:
			fmt.Printf("   Account id: %s\n", status.Credentials.AccountID)
			fmt.Printf("   Access token: %s\n", status.Credentials.AccessToken)
		case status.Err != nil:
			fmt.Printf("   %s\n", ui.Red(status.Err.Error()))
		default:
			fmt.Printf("   %s\n", ui.Dim("not set"))
		}
		fmt.Println()
	}

	creds, err := manager.Resolve()
	if err != nil {
		ui.PrintError(err.Error())
		return
	}
	ui.PrintInfo("Publishing as", creds.AccountID)
}

// readPassword reads a secret from stdin without echoing
func readPassword(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(password)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
