// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server for Claude Desktop integration
package cli

import (
	"context"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/sift/handlers"
	"github.com/harperreed/sift/mailbox"
	"github.com/harperreed/sift/summarize"
)

// MCPCommand starts the MCP server on stdio
func MCPCommand(mail *mailbox.Service, summaries *summarize.Service) error {
	log.Println("Starting Sift MCP Server...")

	inboxHandlers := handlers.NewInboxHandlers(mail, summaries)

	// Create MCP server
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "sift",
		Version: "0.1.0",
	}, nil)

	// Register tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_inbox",
		Description: "List a page of the owner's inbox with sender, subject, and date",
	}, inboxHandlers.ListInbox)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_message",
		Description: "Read the decoded plain-text body of a single message",
	}, inboxHandlers.ReadMessage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "summarize_message",
		Description: "Produce a short summary of a message's body",
	}, inboxHandlers.SummarizeMessage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_cache",
		Description: "Clear all cached mailbox data across every tier",
	}, inboxHandlers.ClearCache)

	// Run server on stdio transport
	ctx := context.Background()
	return server.Run(ctx, &mcp.StdioTransport{})
}
