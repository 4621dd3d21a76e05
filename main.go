// ABOUTME: Entry point for the sift inbox server and CLI
// ABOUTME: Routes to auth, fetch, serve, or MCP commands based on arguments
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/harperreed/sift/auth"
	"github.com/harperreed/sift/cli"
	"github.com/harperreed/sift/db"
	"github.com/harperreed/sift/mailbox"
	"github.com/harperreed/sift/store"
	"github.com/harperreed/sift/summarize"
)

const version = "0.1.0"

func main() {
	// Optional .env for GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET
	_ = godotenv.Load()

	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Record store path (default: ~/.local/share/sift/sift.db)")
	cachePath := flag.String("cache-path", "", "Durable cache path (default: ~/.local/share/sift/cache)")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	// Handle version flag
	if *showVersion {
		fmt.Printf("sift version %s\n", version)
		os.Exit(0)
	}

	// Get remaining args after flags
	args := flag.Args()

	// If no command specified, show usage
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	database, err := db.OpenDatabase(databasePath(*dbPath))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	switch command {
	case "auth":
		if err := cli.AuthCommand(database, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "fetch":
		mail, _ := buildServices(database, *cachePath)
		if err := cli.FetchCommand(mail, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "serve":
		mail, summaries := buildServices(database, *cachePath)
		if err := cli.ServeCommand(mail, summaries, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "mcp":
		mail, summaries := buildServices(database, *cachePath)
		if err := cli.MCPCommand(mail, summaries); err != nil {
			log.Fatalf("MCP server failed: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// buildServices wires the cache, credential manager, and mailbox and
// summarize services onto the shared record store.
func buildServices(database *sql.DB, cachePath string) (*mailbox.Service, *summarize.Service) {
	if cachePath == "" {
		cachePath = os.Getenv("SIFT_CACHE_PATH")
	}
	if cachePath == "" {
		cachePath = store.DefaultPath()
	}

	cache := store.NewCache(store.NewStore(cachePath))
	cache.Initialize()

	creds := auth.NewManager(auth.NewOAuthConfig(), &auth.SQLStore{DB: database})
	mail := mailbox.NewService(cache, creds)
	summaries := summarize.NewService(cache, database, mail, nil)

	return mail, summaries
}

func databasePath(dbPath string) string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("SIFT_DB_PATH"); env != "" {
		return env
	}
	return db.DefaultPath()
}

func printUsage() {
	fmt.Printf(`sift v%s - Gmail overlay inbox

USAGE:
  sift [global flags] <command> [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Record store path (default: ~/.local/share/sift/sift.db)
  --cache-path <path>    Durable cache path (default: ~/.local/share/sift/cache)

COMMANDS:
  auth                   Run the Google OAuth consent flow and save the credential
  fetch                  Fetch and print a page of the inbox
    --owner <email>        Mailbox owner (required, from 'sift auth')
    --q <query>            Gmail search query (default: in:inbox)
    --page <n>             Page number, 1-based (default: 1)
    --n <n>                Messages per page (default: 20)
  serve                  Start the local JSON API
    --port <n>             Port to listen on (default: 8765)
  mcp                    Start MCP server (for Claude Desktop integration)

EXAMPLES:
  # Authenticate a Google account
  sift auth

  # Second page of unread mail
  sift fetch --owner you@gmail.com --q "is:unread" --page 2

  # Serve the JSON API on port 9000
  sift serve --port 9000
`, version)
}
