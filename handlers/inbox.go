// ABOUTME: Inbox MCP tool handlers
// ABOUTME: Implements list_inbox, read_message, summarize_message, and clear_cache tools
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/sift/mailbox"
	"github.com/harperreed/sift/models"
	"github.com/harperreed/sift/summarize"
)

type InboxHandlers struct {
	mail      *mailbox.Service
	summaries *summarize.Service
}

func NewInboxHandlers(mail *mailbox.Service, summaries *summarize.Service) *InboxHandlers {
	return &InboxHandlers{mail: mail, summaries: summaries}
}

type ListInboxInput struct {
	Owner    string `json:"owner" jsonschema:"Mailbox owner id (required)"`
	Query    string `json:"query,omitempty" jsonschema:"Gmail search query, e.g. 'in:inbox is:unread'"`
	Page     int    `json:"page,omitempty" jsonschema:"1-based page number (default 1)"`
	PageSize int    `json:"page_size,omitempty" jsonschema:"Messages per page (default 25)"`
}

type MessageOutput struct {
	ID      string `json:"id"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Date    string `json:"date,omitempty"`
}

type ListInboxOutput struct {
	Messages      []MessageOutput   `json:"messages"`
	TotalEstimate int64             `json:"total_estimate"`
	NextCursor    string            `json:"next_cursor,omitempty"`
	Failed        map[string]string `json:"failed,omitempty"`
}

func (h *InboxHandlers) ListInbox(ctx context.Context, request *mcp.CallToolRequest, input ListInboxInput) (*mcp.CallToolResult, ListInboxOutput, error) {
	if input.Owner == "" {
		return nil, ListInboxOutput{}, fmt.Errorf("owner is required")
	}

	page, err := h.mail.FetchPage(ctx, input.Owner, input.Query, input.Page, input.PageSize)
	if err != nil {
		return nil, ListInboxOutput{}, err
	}

	output := ListInboxOutput{
		TotalEstimate: page.TotalEstimate,
		NextCursor:    page.NextCursor,
		Failed:        page.Failed,
	}
	for _, msg := range page.Messages {
		output.Messages = append(output.Messages, toMessageOutput(msg))
	}

	return nil, output, nil
}

type ReadMessageInput struct {
	Owner     string `json:"owner" jsonschema:"Mailbox owner id (required)"`
	MessageID string `json:"message_id" jsonschema:"Message id to read (required)"`
}

type ReadMessageOutput struct {
	MessageOutput
	To   string `json:"to,omitempty"`
	Body string `json:"body,omitempty"`
}

func (h *InboxHandlers) ReadMessage(ctx context.Context, request *mcp.CallToolRequest, input ReadMessageInput) (*mcp.CallToolResult, ReadMessageOutput, error) {
	if input.Owner == "" || input.MessageID == "" {
		return nil, ReadMessageOutput{}, fmt.Errorf("owner and message_id are required")
	}

	msg, err := h.mail.GetMessage(ctx, input.Owner, input.MessageID)
	if err != nil {
		return nil, ReadMessageOutput{}, err
	}

	return nil, ReadMessageOutput{
		MessageOutput: toMessageOutput(*msg),
		To:            msg.To,
		Body:          msg.Body,
	}, nil
}

type SummarizeMessageInput struct {
	Owner     string `json:"owner" jsonschema:"Mailbox owner id (required)"`
	MessageID string `json:"message_id" jsonschema:"Message id to summarize (required)"`
}

type SummarizeMessageOutput struct {
	SummaryID string `json:"summary_id"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

func (h *InboxHandlers) SummarizeMessage(ctx context.Context, request *mcp.CallToolRequest, input SummarizeMessageInput) (*mcp.CallToolResult, SummarizeMessageOutput, error) {
	if input.Owner == "" || input.MessageID == "" {
		return nil, SummarizeMessageOutput{}, fmt.Errorf("owner and message_id are required")
	}

	summary, err := h.summaries.SummarizeMessage(ctx, input.Owner, input.MessageID)
	if err != nil {
		return nil, SummarizeMessageOutput{}, err
	}

	return nil, SummarizeMessageOutput{
		SummaryID: summary.ID,
		MessageID: summary.MessageID,
		Text:      summary.Text,
	}, nil
}

type ClearCacheInput struct{}

type ClearCacheOutput struct {
	Cleared bool `json:"cleared"`
}

func (h *InboxHandlers) ClearCache(ctx context.Context, request *mcp.CallToolRequest, input ClearCacheInput) (*mcp.CallToolResult, ClearCacheOutput, error) {
	h.mail.ClearCache()
	return nil, ClearCacheOutput{Cleared: true}, nil
}

func toMessageOutput(msg models.Message) MessageOutput {
	out := MessageOutput{
		ID:      msg.ID,
		From:    msg.From,
		Subject: msg.Subject,
		Snippet: msg.Snippet,
	}
	if !msg.Date.IsZero() {
		out.Date = msg.Date.Format("2006-01-02 15:04")
	}
	return out
}
