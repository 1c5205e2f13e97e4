package auth

import (
	"fmt"
	"strings"
)

// ShowTokenGuide displays step-by-step instructions for obtaining an
// Instagram account ID and a long-lived access token
func ShowTokenGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("📚 INSTAGRAM GRAPH API CREDENTIALS")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("Publishing needs an Instagram Business or Creator account linked to a")
	fmt.Println("Facebook Page, and a Meta app with the Instagram Graph API product.")
	fmt.Println()

	fmt.Println("🔧 STEP 1: Open the Graph API Explorer")
	fmt.Println("   - Go to https://developers.facebook.com/tools/explorer")
	fmt.Println("   - Select your app in the top right")
	fmt.Println()

	fmt.Println("🔑 STEP 2: Generate a user token with these permissions:")
	fmt.Println("   • instagram_basic")
	fmt.Println("   • instagram_content_publish")
	fmt.Println("   • pages_show_list")
	fmt.Println()

	fmt.Println("🆔 STEP 3: Find your Instagram account ID")
	fmt.Println("   - Query: me/accounts?fields=instagram_business_account")
	fmt.Println("   - Copy the id inside instagram_business_account")
	fmt.Println()

	fmt.Println("⏳ STEP 4: Exchange for a long-lived token (about 60 days)")
	fmt.Println("   - Use the Access Token Debugger and click 'Extend Access Token'")
	fmt.Println()

	fmt.Println("⚠️  SECURITY WARNING:")
	fmt.Println("   • The token can post to your account. Never share it.")
	fmt.Println("   • This tool stores it in your keychain or an encrypted file.")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}
