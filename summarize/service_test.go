package summarize

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/harperreed/sift/db"
	"github.com/harperreed/sift/mailbox"
	"github.com/harperreed/sift/models"
	"github.com/harperreed/sift/store"
)

type staticLister struct {
	body string
}

func (s *staticLister) List(ctx context.Context, query, cursor string, pageSize int64) (*mailbox.ListResult, error) {
	return &mailbox.ListResult{}, nil
}

func (s *staticLister) Get(ctx context.Context, id string) (*models.Message, error) {
	return &models.Message{ID: id, Body: s.body}, nil
}

func (s *staticLister) Thread(ctx context.Context, id string) (*models.Thread, error) {
	return &models.Thread{ID: id}, nil
}

func (s *staticLister) Profile(ctx context.Context) (string, uint64, error) {
	return "owner@example.com", 1, nil
}

type staticTokens struct{}

func (staticTokens) Token(ctx context.Context, ownerID string) (string, error) {
	return "token", nil
}

type countingSummarizer struct {
	calls int
	inner Summarizer
}

func (c *countingSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	c.calls++
	return c.inner.Summarize(ctx, text)
}

func newTestSummaryService(t *testing.T, body string) (*Service, *countingSummarizer, *store.Cache) {
	t.Helper()

	s := store.NewStore(filepath.Join(t.TempDir(), "cache"))
	t.Cleanup(func() { _ = s.Close() })
	cache := store.NewCache(s)
	cache.Initialize()

	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "sift.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = database.Close() })

	mail := mailbox.NewService(cache, staticTokens{}, mailbox.WithListerFactory(
		func(ctx context.Context, accessToken string) (mailbox.Lister, error) {
			return &staticLister{body: body}, nil
		}))

	counter := &countingSummarizer{inner: NewExtractive()}
	return NewService(cache, database, mail, counter), counter, cache
}

func TestSummarizeMessageProducesAndCaches(t *testing.T) {
	svc, counter, cache := newTestSummaryService(t, "Budget approved. Ship on Friday. Details in the doc.")

	summary, err := svc.SummarizeMessage(context.Background(), "alice", "m1")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Text == "" || summary.MessageID != "m1" {
		t.Errorf("unexpected summary: %+v", summary)
	}

	// Second request must come from the cache, not the summarizer.
	again, err := svc.SummarizeMessage(context.Background(), "alice", "m1")
	if err != nil {
		t.Fatal(err)
	}
	if counter.calls != 1 {
		t.Errorf("expected exactly one summarizer call, got %d", counter.calls)
	}
	if again.ID != summary.ID {
		t.Errorf("expected the cached summary, got a new one")
	}

	if entry, ok := cache.Get(models.SummaryKey("alice", "m1")); !ok || entry.Summary == nil {
		t.Error("summary missing from cache")
	}
}

func TestSummarizeMessagePersistsArtifact(t *testing.T) {
	svc, _, _ := newTestSummaryService(t, "One. Two. Three.")

	if _, err := svc.SummarizeMessage(context.Background(), "alice", "m9"); err != nil {
		t.Fatal(err)
	}

	artifacts, err := db.FindArtifacts(svc.database, "alice", models.ArtifactSummary, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 1 || artifacts[0].RefID != "m9" {
		t.Errorf("expected one artifact for m9, got %+v", artifacts)
	}
}
