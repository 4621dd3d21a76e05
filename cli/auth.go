// ABOUTME: OAuth consent CLI command
// ABOUTME: Runs the browser consent flow and persists the resulting credential
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/harperreed/sift/auth"
	"github.com/harperreed/sift/db"
	"github.com/harperreed/sift/mailbox"
	"github.com/harperreed/sift/models"
)

// AuthCommand handles OAuth setup for a mailbox owner.
func AuthCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("auth", flag.ExitOnError)
	_ = fs.Parse(args)

	ctx := context.Background()

	if os.Getenv("GOOGLE_CLIENT_SECRET") == "" && os.Getenv("GOOGLE_CLIENT_ID") != "" {
		fmt.Print("Google client secret: ")
		secret, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read client secret: %w", err)
		}
		_ = os.Setenv("GOOGLE_CLIENT_SECRET", string(secret))
	}

	config, err := auth.RequireOAuthConfig()
	if err != nil {
		return err
	}

	// Start local server for OAuth callback
	callbackChan := make(chan *oauth2.Token)
	errChan := make(chan error)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no authorization code received")
			return
		}

		token, err := config.Exchange(ctx, code)
		if err != nil {
			errChan <- fmt.Errorf("failed to exchange code: %w", err)
			return
		}

		callbackChan <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	server := &http.Server{Addr: ":8080", Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Offline access so the grant includes a refresh token
	authURL := config.AuthCodeURL("state", oauth2.AccessTypeOffline)

	fmt.Println("Opening browser for Google OAuth...")
	fmt.Printf("\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)

	_ = openBrowser(authURL)

	select {
	case token := <-callbackChan:
		_ = server.Shutdown(ctx)

		ownerID, err := resolveOwner(ctx, token.AccessToken)
		if err != nil {
			return fmt.Errorf("failed to resolve mailbox owner: %w", err)
		}

		if err := db.SaveCredential(database, &models.Credential{
			OwnerID:      ownerID,
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			Expiry:       token.Expiry,
		}); err != nil {
			return fmt.Errorf("failed to save credential: %w", err)
		}

		fmt.Printf("\n✓ Authenticated as %s\n", ownerID)
		fmt.Println("✓ Credential saved")
		fmt.Println("\nReady! Run 'sift fetch -owner", ownerID+"' to list your inbox.")

		return nil

	case err := <-errChan:
		_ = server.Shutdown(ctx)
		return fmt.Errorf("OAuth flow failed: %w", err)
	}
}

// resolveOwner asks Gmail whose mailbox the fresh token belongs to.
func resolveOwner(ctx context.Context, accessToken string) (string, error) {
	service, err := mailbox.NewGmailService(ctx, accessToken)
	if err != nil {
		return "", err
	}
	email, _, err := mailbox.NewGmailLister(service).Profile(ctx)
	return email, err
}

// openBrowser opens the URL in the default browser.
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		cmd = "open"
		args = []string{url}
	default: // linux, bsd
		cmd = "xdg-open"
		args = []string{url}
	}

	return exec.Command(cmd, args...).Start()
}
