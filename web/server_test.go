package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/harperreed/sift/auth"
	"github.com/harperreed/sift/mailbox"
	"github.com/harperreed/sift/models"
	"github.com/harperreed/sift/store"
	"github.com/harperreed/sift/summarize"
)

type fakeLister struct {
	listErr error
}

func (f *fakeLister) List(ctx context.Context, query, cursor string, pageSize int64) (*mailbox.ListResult, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &mailbox.ListResult{IDs: []string{"m1", "m2"}, TotalEstimate: 2}, nil
}

func (f *fakeLister) Get(ctx context.Context, id string) (*models.Message, error) {
	return &models.Message{ID: id, Subject: "hello", Body: "A body. With sentences."}, nil
}

func (f *fakeLister) Thread(ctx context.Context, id string) (*models.Thread, error) {
	return &models.Thread{ID: id, Messages: []models.Message{{ID: "m2"}, {ID: "m1"}}}, nil
}

func (f *fakeLister) Profile(ctx context.Context) (string, uint64, error) {
	return "owner@example.com", 1, nil
}

type fakeTokens struct {
	err error
}

func (f *fakeTokens) Token(ctx context.Context, ownerID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token", nil
}

func newTestServer(t *testing.T, lister *fakeLister, tokens *fakeTokens) *Server {
	t.Helper()

	s := store.NewStore(filepath.Join(t.TempDir(), "cache"))
	t.Cleanup(func() { _ = s.Close() })
	cache := store.NewCache(s)
	cache.Initialize()

	if tokens == nil {
		tokens = &fakeTokens{}
	}
	mail := mailbox.NewService(cache, tokens, mailbox.WithListerFactory(
		func(ctx context.Context, accessToken string) (mailbox.Lister, error) {
			return lister, nil
		}))
	summaries := summarize.NewService(cache, nil, mail, nil)
	return NewServer(mail, summaries)
}

func doRequest(t *testing.T, server *Server, method, target, owner string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestInboxRequiresOwnerHeader(t *testing.T) {
	server := newTestServer(t, &fakeLister{}, nil)

	rec := doRequest(t, server, http.MethodGet, "/inbox", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestInboxReturnsPage(t *testing.T) {
	server := newTestServer(t, &fakeLister{}, nil)

	rec := doRequest(t, server, http.MethodGet, "/inbox?q=is:unread&page=1", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var page mailbox.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(page.Messages) != 2 || page.TotalEstimate != 2 {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestMessageEndpoint(t *testing.T) {
	server := newTestServer(t, &fakeLister{}, nil)

	rec := doRequest(t, server, http.MethodGet, "/message/m1", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var msg models.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.ID != "m1" || msg.Body == "" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	server := newTestServer(t, &fakeLister{}, nil)

	rec := doRequest(t, server, http.MethodGet, "/message/m1/summary", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary models.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Text == "" {
		t.Error("expected non-empty summary")
	}
}

func TestTerminalAuthMapsTo401(t *testing.T) {
	server := newTestServer(t, &fakeLister{}, &fakeTokens{err: auth.ErrAuthExpiredTerminal})

	rec := doRequest(t, server, http.MethodGet, "/inbox", "alice")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for terminal auth, got %d", rec.Code)
	}
}

func TestTransientUpstreamMapsTo502Retryable(t *testing.T) {
	lister := &fakeLister{
		listErr: &mailbox.UpstreamError{Op: "list", Err: errors.New("timeout"), Retryable: true},
	}
	server := newTestServer(t, lister, nil)

	rec := doRequest(t, server, http.MethodGet, "/inbox", "alice")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if retryable, _ := body["retryable"].(bool); !retryable {
		t.Errorf("expected retryable flag, got %v", body)
	}
}

func TestCacheClearEndpoint(t *testing.T) {
	server := newTestServer(t, &fakeLister{}, nil)

	rec := doRequest(t, server, http.MethodPost, "/cache/clear", "alice")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
