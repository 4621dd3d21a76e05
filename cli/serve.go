// ABOUTME: Web server subcommand
// ABOUTME: Starts the JSON API server for local inbox access
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/harperreed/sift/mailbox"
	"github.com/harperreed/sift/summarize"
	"github.com/harperreed/sift/web"
)

// ServeCommand starts the HTTP JSON API.
func ServeCommand(mail *mailbox.Service, summaries *summarize.Service, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", defaultPort(), "Port to listen on")
	_ = fs.Parse(args)

	server := web.NewServer(mail, summaries)

	fmt.Printf("→ Sift API listening on http://localhost:%d\n", *port)
	fmt.Println("  Send requests with an X-Sift-Owner header set to your authenticated email.")

	return server.Start(*port)
}

func defaultPort() int {
	if raw := os.Getenv("SIFT_PORT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 8765
}
