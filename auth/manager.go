// ABOUTME: Credential manager owning the access/refresh token lifecycle per mailbox owner
// ABOUTME: Ensures a valid token before every upstream call, serializing refreshes via singleflight
package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/harperreed/sift/db"
	"github.com/harperreed/sift/models"
)

// ErrAuthExpiredTerminal marks a credential that cannot be refreshed: the
// access token is expired and no refresh token is stored. The caller must
// route the user back through the consent flow.
var ErrAuthExpiredTerminal = errors.New("authorization expired with no refresh token; re-run consent")

// refreshSkew is the margin before actual expiry during which a credential
// is proactively refreshed, so a request never races against expiry mid-flight.
const refreshSkew = 5 * time.Minute

const upstreamTimeout = 30 * time.Second

// credState is the per-owner credential state.
type credState int

const (
	stateValid credState = iota
	stateRefreshable // covers both near-expiry and already expired
	stateTerminal
)

// Store abstracts the durable credential record. The manager is the sole
// writer of token fields; other readers (profile views) go to the record
// store directly.
type Store interface {
	Load(ownerID string) (*models.Credential, error)
	Save(cred *models.Credential) error
}

// SQLStore adapts the record store database to the Store interface.
type SQLStore struct {
	DB *sql.DB
}

func (s *SQLStore) Load(ownerID string) (*models.Credential, error) {
	return db.LoadCredential(s.DB, ownerID)
}

func (s *SQLStore) Save(cred *models.Credential) error {
	return db.SaveCredential(s.DB, cred)
}

// Manager decides when an owner's credential needs refreshing and performs
// the refresh. At most one refresh per owner is in flight at a time;
// concurrent callers share the result.
type Manager struct {
	config *oauth2.Config
	store  Store
	client *http.Client
	now    func() time.Time
	group  singleflight.Group
}

// Option configures the manager.
type Option func(*Manager)

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithHTTPClient overrides the HTTP client used for refresh calls.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.client = client
	}
}

func NewManager(config *oauth2.Config, store Store, opts ...Option) *Manager {
	m := &Manager{
		config: config,
		store:  store,
		client: &http.Client{Timeout: upstreamTimeout},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a valid access token for ownerID, refreshing the stored
// credential first if it is near or past expiry. Refresh failure with a
// refresh token present falls back to the stale access token; the caller's
// subsequent API call surfaces the auth error normally if the stale token
// truly no longer works.
func (m *Manager) Token(ctx context.Context, ownerID string) (string, error) {
	cred, err := m.store.Load(ownerID)
	if err != nil {
		return "", err
	}
	if cred == nil || cred.AccessToken == "" {
		return "", ErrAuthExpiredTerminal
	}

	switch m.classify(cred) {
	case stateValid:
		return cred.AccessToken, nil
	case stateTerminal:
		return "", ErrAuthExpiredTerminal
	default:
		return m.refresh(ctx, cred)
	}
}

// classify maps a credential onto the lifecycle state machine.
func (m *Manager) classify(cred *models.Credential) credState {
	if cred.Expiry.IsZero() {
		// no expiry recorded: assume valid
		return stateValid
	}

	now := m.now()
	if now.Before(cred.Expiry.Add(-refreshSkew)) {
		return stateValid
	}
	if cred.RefreshToken != "" {
		return stateRefreshable
	}
	if now.Before(cred.Expiry) {
		// inside the skew window but not yet expired, and nothing to
		// refresh with: use the token as-is
		return stateValid
	}
	return stateTerminal
}

// refresh performs the upstream token refresh, serialized per owner.
func (m *Manager) refresh(ctx context.Context, cred *models.Credential) (string, error) {
	v, err, _ := m.group.Do(cred.OwnerID, func() (interface{}, error) {
		refreshCtx := context.WithValue(ctx, oauth2.HTTPClient, m.client)
		src := m.config.TokenSource(refreshCtx, &oauth2.Token{RefreshToken: cred.RefreshToken})

		token, err := src.Token()
		if err != nil {
			// Best-effort degradation: keep serving the stale token and
			// let the next upstream call report auth failure if it must.
			log.Printf("auth: token refresh failed for %s, using stale access token: %v", cred.OwnerID, err)
			return cred.AccessToken, nil
		}

		updated := &models.Credential{
			OwnerID:     cred.OwnerID,
			AccessToken: token.AccessToken,
			Expiry:      token.Expiry,
		}
		// The upstream may omit a new refresh token; SaveCredential keeps
		// the stored one in that case.
		if token.RefreshToken != cred.RefreshToken {
			updated.RefreshToken = token.RefreshToken
		}

		if err := m.store.Save(updated); err != nil {
			log.Printf("auth: failed to persist refreshed credential for %s: %v", cred.OwnerID, err)
		}

		return token.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
