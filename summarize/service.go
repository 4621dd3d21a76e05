// ABOUTME: Summary production service over cached messages
// ABOUTME: Summaries read through the tiered cache and persist as durable artifacts
package summarize

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/sift/db"
	"github.com/harperreed/sift/mailbox"
	"github.com/harperreed/sift/models"
	"github.com/harperreed/sift/store"
)

// Service produces per-message summaries: cache first, then the message
// body through the summarizer, with the result written back to the cache
// and appended to the owner's artifact log.
type Service struct {
	cache      *store.Cache
	database   *sql.DB
	mail       *mailbox.Service
	summarizer Summarizer
}

func NewService(cache *store.Cache, database *sql.DB, mail *mailbox.Service, summarizer Summarizer) *Service {
	if summarizer == nil {
		summarizer = NewExtractive()
	}
	return &Service{
		cache:      cache,
		database:   database,
		mail:       mail,
		summarizer: summarizer,
	}
}

// SummarizeMessage returns the summary for one message, producing and
// recording it on first request.
func (s *Service) SummarizeMessage(ctx context.Context, ownerID, messageID string) (*models.Summary, error) {
	key := models.SummaryKey(ownerID, messageID)
	if entry, ok := s.cache.Get(key); ok && entry.Summary != nil {
		return entry.Summary, nil
	}

	msg, err := s.mail.GetMessage(ctx, ownerID, messageID)
	if err != nil {
		return nil, err
	}

	text := msg.Body
	if text == "" {
		text = msg.Snippet
	}

	summarized, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("summarize message %s: %w", messageID, err)
	}

	summary := &models.Summary{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		MessageID: messageID,
		Text:      summarized,
		CreatedAt: time.Now(),
	}

	s.cache.Set(key, &models.CacheEntry{Kind: models.EntrySummary, Summary: summary})

	if s.database != nil {
		err := db.CreateArtifact(s.database, &models.Artifact{
			OwnerID: ownerID,
			Kind:    models.ArtifactSummary,
			RefID:   messageID,
			Content: summarized,
		})
		if err != nil {
			// durable artifact log is best-effort; the summary itself is cached
			log.Printf("summarize: failed to persist artifact for %s: %v", messageID, err)
		}
	}

	return summary, nil
}
