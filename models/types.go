// ABOUTME: Data models for cached mail entities and credentials
// ABOUTME: Defines Message, Thread, Summary, PageMeta, CacheEntry, and Credential structs
package models

import (
	"fmt"
	"time"
)

type Message struct {
	ID           string    `json:"id"`
	ThreadID     string    `json:"thread_id,omitempty"`
	From         string    `json:"from,omitempty"`
	To           string    `json:"to,omitempty"`
	Subject      string    `json:"subject,omitempty"`
	Snippet      string    `json:"snippet,omitempty"`
	Date         time.Time `json:"date,omitempty"`
	InternalDate int64     `json:"internal_date,omitempty"`
	Body         string    `json:"body,omitempty"`
}

// Thread holds an ordered sequence of messages, newest first.
type Thread struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

type Summary struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	MessageID string    `json:"message_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// PageMeta is pagination metadata for a query: the cursor to the next page
// and the upstream's estimate of the total result count.
type PageMeta struct {
	NextCursor    string `json:"next_cursor,omitempty"`
	TotalEstimate int64  `json:"total_estimate"`
}

// EntryKind constants.
const (
	EntryMessage = "message"
	EntryThread  = "thread"
	EntrySummary = "summary"
	EntryPage    = "page"
	EntryHistory = "history"
)

// CacheEntry is the value stored under a cache key. Exactly one of the
// variant fields is set, indicated by Kind. Entries are immutable once
// written; a later Set on the same key replaces the entry wholesale.
type CacheEntry struct {
	Kind    string    `json:"kind"`
	Message *Message  `json:"message,omitempty"`
	Thread  *Thread   `json:"thread,omitempty"`
	Summary *Summary  `json:"summary,omitempty"`
	Page    *PageMeta `json:"page,omitempty"`

	// HistoryID is the mailbox change cursor recorded at the last full
	// fetch, kept for a future incremental sync.
	HistoryID uint64 `json:"history_id,omitempty"`
}

// Credential is the OAuth token pair for one mailbox owner. A zero Expiry
// means "assume valid". RefreshToken may be empty on grants that did not
// include offline access.
type Credential struct {
	OwnerID      string    `json:"owner_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Artifact kinds for opaque persisted blobs.
const (
	ArtifactSummary = "summary"
	ArtifactPrompt  = "prompt"
	ArtifactDraft   = "draft"
)

type Artifact struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Kind      string    `json:"kind"`
	RefID     string    `json:"ref_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache key builders. The cache itself has no concept of tenancy; the owner
// prefix on every key is what keeps one mailbox's data out of another's.

func MessageKey(ownerID, messageID string) string {
	return fmt.Sprintf("%s:email:%s", ownerID, messageID)
}

func ThreadKey(ownerID, threadID string) string {
	return fmt.Sprintf("%s:thread:%s", ownerID, threadID)
}

func SummaryKey(ownerID, messageID string) string {
	return fmt.Sprintf("%s:summary:%s", ownerID, messageID)
}

func PageKey(ownerID, query string, page int) string {
	return fmt.Sprintf("%s:nextPageToken:%s:%d", ownerID, query, page)
}

func HistoryKey(ownerID string) string {
	return fmt.Sprintf("%s:historyId", ownerID)
}
