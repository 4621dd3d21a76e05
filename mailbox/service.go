// ABOUTME: Inbox service tying the cache, credential manager, paginator, and decoder together
// ABOUTME: Request handlers talk to this; it owns the cache-miss and write-back flow
package mailbox

import (
	"context"

	"github.com/harperreed/sift/models"
	"github.com/harperreed/sift/store"
)

// TokenProvider yields a validated access token for an owner before every
// upstream call. *auth.Manager satisfies this.
type TokenProvider interface {
	Token(ctx context.Context, ownerID string) (string, error)
}

// ListerFactory builds a Lister bound to one access token. The default
// constructs a real Gmail service; tests inject fakes.
type ListerFactory func(ctx context.Context, accessToken string) (Lister, error)

func defaultListerFactory(ctx context.Context, accessToken string) (Lister, error) {
	service, err := NewGmailService(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return NewGmailLister(service), nil
}

// Service materializes mailbox pages and messages, reading through the
// tiered cache and writing fetched data back.
type Service struct {
	cache     *store.Cache
	creds     TokenProvider
	newLister ListerFactory
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithListerFactory overrides how the remote listing backend is built.
func WithListerFactory(factory ListerFactory) ServiceOption {
	return func(s *Service) {
		s.newLister = factory
	}
}

func NewService(cache *store.Cache, creds TokenProvider, opts ...ServiceOption) *Service {
	s := &Service{
		cache:     cache,
		creds:     creds,
		newLister: defaultListerFactory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchPage returns page targetPage of the owner's mailbox for query.
// Per-message data is served from the cache where possible; misses walk the
// remote cursor chain and are written back. Page metadata is cached under
// the owner's page key for the UI's pager.
func (s *Service) FetchPage(ctx context.Context, ownerID, query string, targetPage, pageSize int) (*Page, error) {
	lister, err := s.lister(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	page, err := ListPage(ctx, lister, query, targetPage, pageSize)
	if err != nil {
		return nil, err
	}

	s.cache.Set(models.PageKey(ownerID, query, targetPage), &models.CacheEntry{
		Kind: models.EntryPage,
		Page: &models.PageMeta{
			NextCursor:    page.NextCursor,
			TotalEstimate: page.TotalEstimate,
		},
	})

	return page, nil
}

// GetMessage returns one message, from the cache when present.
func (s *Service) GetMessage(ctx context.Context, ownerID, id string) (*models.Message, error) {
	if entry, ok := s.cache.Get(models.MessageKey(ownerID, id)); ok && entry.Message != nil {
		return entry.Message, nil
	}

	lister, err := s.lister(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return lister.Get(ctx, id)
}

// GetThread returns a conversation, newest message first, from the cache
// when present.
func (s *Service) GetThread(ctx context.Context, ownerID, id string) (*models.Thread, error) {
	if entry, ok := s.cache.Get(models.ThreadKey(ownerID, id)); ok && entry.Thread != nil {
		return entry.Thread, nil
	}

	lister, err := s.lister(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	thread, err := lister.Thread(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(models.ThreadKey(ownerID, id), &models.CacheEntry{
		Kind:   models.EntryThread,
		Thread: thread,
	})
	return thread, nil
}

// RecordHistory fetches the owner's mailbox profile and caches the current
// history id. Nothing consumes it yet; it marks the position a future
// incremental sync would start from.
func (s *Service) RecordHistory(ctx context.Context, ownerID string) (string, uint64, error) {
	lister, err := s.lister(ctx, ownerID)
	if err != nil {
		return "", 0, err
	}

	email, historyID, err := lister.Profile(ctx)
	if err != nil {
		return "", 0, err
	}

	s.cache.Set(models.HistoryKey(ownerID), &models.CacheEntry{
		Kind:      models.EntryHistory,
		HistoryID: historyID,
	})
	return email, historyID, nil
}

// ClearCache empties both cache tiers.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// lister builds the caching remote backend for one request: validated
// token first, then the Lister wrapped so per-message gets read through
// the cache and write back.
func (s *Service) lister(ctx context.Context, ownerID string) (Lister, error) {
	token, err := s.creds.Token(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	remote, err := s.newLister(ctx, token)
	if err != nil {
		return nil, err
	}

	return &cachingLister{Lister: remote, cache: s.cache, owner: ownerID}, nil
}

// cachingLister reads message details through the tiered cache and writes
// fetched messages back. Listing calls pass through: cursor pages are a
// moving target and are not cached here.
type cachingLister struct {
	Lister
	cache *store.Cache
	owner string
}

func (c *cachingLister) Get(ctx context.Context, id string) (*models.Message, error) {
	key := models.MessageKey(c.owner, id)
	if entry, ok := c.cache.Get(key); ok && entry.Message != nil {
		return entry.Message, nil
	}

	msg, err := c.Lister.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, &models.CacheEntry{Kind: models.EntryMessage, Message: msg})
	return msg, nil
}
