package mailbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/harperreed/sift/models"
	"github.com/harperreed/sift/store"
)

var errNoConsent = errors.New("authorization expired with no refresh token")

// fakeTokens hands out one static token, or fails terminally per owner.
type fakeTokens struct {
	denied map[string]bool
}

func (f *fakeTokens) Token(ctx context.Context, ownerID string) (string, error) {
	if f.denied[ownerID] {
		return "", errNoConsent
	}
	return "token-" + ownerID, nil
}

func newTestService(t *testing.T, lister *fakeLister, tokens *fakeTokens) (*Service, *store.Cache) {
	t.Helper()
	s := store.NewStore(filepath.Join(t.TempDir(), "cache"))
	t.Cleanup(func() { _ = s.Close() })
	cache := store.NewCache(s)
	cache.Initialize()

	if tokens == nil {
		tokens = &fakeTokens{}
	}
	svc := NewService(cache, tokens, WithListerFactory(
		func(ctx context.Context, accessToken string) (Lister, error) {
			return lister, nil
		}))
	return svc, cache
}

func TestFetchPageWritesMessagesToCache(t *testing.T) {
	lister := newFakeLister(25)
	svc, cache := newTestService(t, lister, nil)

	page, err := svc.FetchPage(context.Background(), "alice", "in:inbox", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Messages) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(page.Messages))
	}

	entry, ok := cache.Get(models.MessageKey("alice", "m1"))
	if !ok || entry.Message == nil || entry.Message.ID != "m1" {
		t.Errorf("expected m1 written back to cache, got %+v", entry)
	}
}

func TestFetchPageServesRepeatFromCache(t *testing.T) {
	lister := newFakeLister(25)
	svc, _ := newTestService(t, lister, nil)

	if _, err := svc.FetchPage(context.Background(), "alice", "in:inbox", 1, 10); err != nil {
		t.Fatal(err)
	}
	firstGets := lister.getCalls

	if _, err := svc.FetchPage(context.Background(), "alice", "in:inbox", 1, 10); err != nil {
		t.Fatal(err)
	}
	if lister.getCalls != firstGets {
		t.Errorf("expected repeat page served from cache, upstream gets went %d -> %d", firstGets, lister.getCalls)
	}
}

func TestFetchPageCachesPageMeta(t *testing.T) {
	lister := newFakeLister(25)
	svc, cache := newTestService(t, lister, nil)

	if _, err := svc.FetchPage(context.Background(), "alice", "in:inbox", 1, 10); err != nil {
		t.Fatal(err)
	}

	entry, ok := cache.Get(models.PageKey("alice", "in:inbox", 1))
	if !ok || entry.Page == nil {
		t.Fatal("expected cached page metadata")
	}
	if entry.Page.TotalEstimate != 25 || entry.Page.NextCursor == "" {
		t.Errorf("unexpected page meta: %+v", entry.Page)
	}
}

func TestFetchPageTerminalAuthPropagates(t *testing.T) {
	lister := newFakeLister(5)
	svc, _ := newTestService(t, lister, &fakeTokens{denied: map[string]bool{"alice": true}})

	_, err := svc.FetchPage(context.Background(), "alice", "", 1, 10)
	if !errors.Is(err, errNoConsent) {
		t.Fatalf("expected auth error to propagate, got %v", err)
	}
	if len(lister.listCalls) != 0 {
		t.Errorf("expected zero upstream calls on terminal auth, got %d", len(lister.listCalls))
	}
}

func TestGetMessageReadsThroughCache(t *testing.T) {
	lister := newFakeLister(5)
	svc, _ := newTestService(t, lister, nil)

	msg, err := svc.GetMessage(context.Background(), "alice", "m3")
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != "m3" {
		t.Errorf("unexpected message: %+v", msg)
	}

	if _, err := svc.GetMessage(context.Background(), "alice", "m3"); err != nil {
		t.Fatal(err)
	}
	if lister.getCalls != 1 {
		t.Errorf("expected one upstream get, got %d", lister.getCalls)
	}
}

func TestGetThreadCachesNewestFirst(t *testing.T) {
	lister := newFakeLister(5)
	svc, cache := newTestService(t, lister, nil)

	thread, err := svc.GetThread(context.Background(), "alice", "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(thread.Messages) != 2 || thread.Messages[0].InternalDate < thread.Messages[1].InternalDate {
		t.Errorf("expected newest-first thread, got %+v", thread.Messages)
	}

	if entry, ok := cache.Get(models.ThreadKey("alice", "t1")); !ok || entry.Thread == nil {
		t.Error("expected thread written to cache")
	}
}

func TestRecordHistoryStoresHistoryID(t *testing.T) {
	lister := newFakeLister(5)
	svc, cache := newTestService(t, lister, nil)

	email, historyID, err := svc.RecordHistory(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if email != "owner@example.com" || historyID != 42 {
		t.Errorf("unexpected profile: %s %d", email, historyID)
	}

	entry, ok := cache.Get(models.HistoryKey("alice"))
	if !ok || entry.HistoryID != 42 {
		t.Errorf("expected cached history id, got %+v", entry)
	}
}

func TestOwnersDoNotShareCachedMessages(t *testing.T) {
	aliceLister := newFakeLister(5)
	svc, cache := newTestService(t, aliceLister, nil)

	if _, err := svc.GetMessage(context.Background(), "alice", "m1"); err != nil {
		t.Fatal(err)
	}

	// Bob asking for the "same" message id must miss alice's entry.
	if _, ok := cache.Get(models.MessageKey("bob", "m1")); ok {
		t.Error("bob observed alice's cached message")
	}
	if _, err := svc.GetMessage(context.Background(), "bob", "m1"); err != nil {
		t.Fatal(err)
	}
	if aliceLister.getCalls != 2 {
		t.Errorf("expected a fresh upstream get for bob, got %d total", aliceLister.getCalls)
	}
}
