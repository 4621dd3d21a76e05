// ABOUTME: Cursor-walk pagination over the remote mailbox listing API
// ABOUTME: Reaches an arbitrary page by sequential discard-walks over opaque cursors
package mailbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/sift/models"
)

// UpstreamError wraps a failure talking to the remote mailbox API.
// Retryable marks network/timeout/5xx conditions worth one retry.
type UpstreamError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient upstream failure.
func IsRetryable(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Retryable
}

// ListResult is one page of the remote listing: message ids plus the opaque
// cursor to the next page. An empty NextCursor means the mailbox is exhausted.
type ListResult struct {
	IDs           []string
	NextCursor    string
	TotalEstimate int64
}

// Lister is the remote mailbox surface the paginator walks. Cursors are
// opaque and walk-only: there is no random access to page N.
type Lister interface {
	List(ctx context.Context, query, cursor string, pageSize int64) (*ListResult, error)
	Get(ctx context.Context, id string) (*models.Message, error)
	Thread(ctx context.Context, id string) (*models.Thread, error)
	Profile(ctx context.Context) (emailAddress string, historyID uint64, err error)
}

// Page is the materialized result for one requested page. Failed records
// message ids whose detail fetch failed, keyed to an error marker; a partial
// failure never aborts the rest of the page.
type Page struct {
	Messages      []models.Message  `json:"messages"`
	TotalEstimate int64             `json:"total_estimate"`
	NextCursor    string            `json:"next_cursor,omitempty"`
	Failed        map[string]string `json:"failed,omitempty"`
}

// ListPage walks the cursor chain to targetPage (1-based) and fetches that
// page's messages. The walk is O(targetPage): the upstream only hands out
// forward cursors, so page N-1 cursors are fetched and discarded along the
// way. Callers should prefer cursor-based next-page navigation; arbitrary
// page numbers exist for the UI's pager widget.
func ListPage(ctx context.Context, lister Lister, query string, targetPage, pageSize int) (*Page, error) {
	if targetPage < 1 {
		targetPage = 1
	}
	if pageSize < 1 {
		pageSize = 25
	}

	// A minimal listing call for the total-count estimate.
	estimate, err := listWithRetry(ctx, lister, query, "", 1)
	if err != nil {
		return nil, err
	}

	// Discard-walk to the cursor for the target page.
	cursor := ""
	for walked := 1; walked < targetPage; walked++ {
		res, err := listWithRetry(ctx, lister, query, cursor, int64(pageSize))
		if err != nil {
			return nil, err
		}
		if res.NextCursor == "" {
			// Mailbox exhausted before the requested page.
			return &Page{TotalEstimate: estimate.TotalEstimate}, nil
		}
		cursor = res.NextCursor
	}

	final, err := listWithRetry(ctx, lister, query, cursor, int64(pageSize))
	if err != nil {
		return nil, err
	}

	page := &Page{
		TotalEstimate: estimate.TotalEstimate,
		NextCursor:    final.NextCursor,
	}

	// One get per message id; a single failure is recorded and skipped.
	for _, id := range final.IDs {
		msg, err := lister.Get(ctx, id)
		if err != nil {
			if page.Failed == nil {
				page.Failed = make(map[string]string)
			}
			page.Failed[id] = err.Error()
			continue
		}
		page.Messages = append(page.Messages, *msg)
	}

	return page, nil
}

// listWithRetry issues one listing call, retrying exactly once on a
// transient upstream failure.
func listWithRetry(ctx context.Context, lister Lister, query, cursor string, pageSize int64) (*ListResult, error) {
	res, err := lister.List(ctx, query, cursor, pageSize)
	if err == nil {
		return res, nil
	}
	if !IsRetryable(err) {
		return nil, err
	}
	return lister.List(ctx, query, cursor, pageSize)
}
