// ABOUTME: Inbox fetch CLI command
// ABOUTME: Pulls a page of the mailbox and prints it to the terminal
package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/harperreed/sift/mailbox"
)

// FetchCommand lists a page of the owner's inbox.
func FetchCommand(mail *mailbox.Service, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	owner := fs.String("owner", "", "Mailbox owner (email from 'sift auth')")
	query := fs.String("q", "in:inbox", "Gmail search query")
	page := fs.Int("page", 1, "Page number (1-based)")
	size := fs.Int("n", 20, "Messages per page")
	_ = fs.Parse(args)

	if *owner == "" {
		return fmt.Errorf("missing -owner (run 'sift auth' first)")
	}

	ctx := context.Background()

	fmt.Printf("→ Fetching page %d of %q for %s...\n", *page, *query, *owner)

	result, err := mail.FetchPage(ctx, *owner, *query, *page, *size)
	if err != nil {
		return fmt.Errorf("failed to fetch page: %w", err)
	}

	if len(result.Messages) == 0 {
		fmt.Println("No messages on this page.")
		return nil
	}

	for _, msg := range result.Messages {
		subject := msg.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		fmt.Printf("  %s  %-30.30s  %s\n", msg.Date.Format("2006-01-02"), msg.From, subject)
	}

	fmt.Printf("\n✓ %d messages (about %d matching overall)\n", len(result.Messages), result.TotalEstimate)

	if len(result.Failed) > 0 {
		fmt.Printf("→ %d messages could not be fetched:\n", len(result.Failed))
		for id, reason := range result.Failed {
			fmt.Printf("  %s: %s\n", id, reason)
		}
	}

	return nil
}
