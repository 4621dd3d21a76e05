// ABOUTME: Gmail API client wrapper implementing the Lister contract
// ABOUTME: Builds the authenticated service per request and classifies upstream failures
package mailbox

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/harperreed/sift/models"
)

const gmailUser = "me"

// NewGmailService creates a Gmail API service authorized by accessToken.
// The credential manager has already validated the token; this wrapper
// only has to carry it.
func NewGmailService(ctx context.Context, accessToken string) (*gmail.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	service, err := gmail.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, &UpstreamError{Op: "connect", Err: err, Retryable: false}
	}
	return service, nil
}

// GmailLister adapts a gmail.Service to the Lister interface.
type GmailLister struct {
	service *gmail.Service
}

func NewGmailLister(service *gmail.Service) *GmailLister {
	return &GmailLister{service: service}
}

func (g *GmailLister) List(ctx context.Context, query, cursor string, pageSize int64) (*ListResult, error) {
	call := g.service.Users.Messages.List(gmailUser).
		Q(query).
		MaxResults(pageSize).
		Context(ctx)
	if cursor != "" {
		call = call.PageToken(cursor)
	}

	response, err := call.Do()
	if err != nil {
		return nil, classify("list", err)
	}

	result := &ListResult{
		NextCursor:    response.NextPageToken,
		TotalEstimate: response.ResultSizeEstimate,
	}
	for _, ref := range response.Messages {
		result.IDs = append(result.IDs, ref.Id)
	}
	return result, nil
}

func (g *GmailLister) Get(ctx context.Context, id string) (*models.Message, error) {
	message, err := g.service.Users.Messages.Get(gmailUser, id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("get", err)
	}

	msg := &models.Message{
		ID:           message.Id,
		ThreadID:     message.ThreadId,
		Snippet:      message.Snippet,
		InternalDate: message.InternalDate,
	}
	if message.InternalDate > 0 {
		msg.Date = time.UnixMilli(message.InternalDate)
	}

	if message.Payload != nil {
		for _, header := range message.Payload.Headers {
			switch header.Name {
			case "From":
				msg.From = header.Value
			case "To":
				msg.To = header.Value
			case "Subject":
				msg.Subject = header.Value
			}
		}
		msg.Body = ExtractBody(message.Payload)
	}

	return msg, nil
}

// Thread fetches a full conversation and orders its messages newest first.
func (g *GmailLister) Thread(ctx context.Context, id string) (*models.Thread, error) {
	thread, err := g.service.Users.Threads.Get(gmailUser, id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("thread", err)
	}

	result := &models.Thread{ID: thread.Id}
	for _, raw := range thread.Messages {
		msg := models.Message{
			ID:           raw.Id,
			ThreadID:     raw.ThreadId,
			Snippet:      raw.Snippet,
			InternalDate: raw.InternalDate,
		}
		if raw.InternalDate > 0 {
			msg.Date = time.UnixMilli(raw.InternalDate)
		}
		if raw.Payload != nil {
			for _, header := range raw.Payload.Headers {
				switch header.Name {
				case "From":
					msg.From = header.Value
				case "To":
					msg.To = header.Value
				case "Subject":
					msg.Subject = header.Value
				}
			}
			msg.Body = ExtractBody(raw.Payload)
		}
		result.Messages = append(result.Messages, msg)
	}

	// Gmail returns threads oldest first; views want newest first.
	sort.Slice(result.Messages, func(i, j int) bool {
		return result.Messages[i].InternalDate > result.Messages[j].InternalDate
	})

	return result, nil
}

func (g *GmailLister) Profile(ctx context.Context) (string, uint64, error) {
	profile, err := g.service.Users.GetProfile(gmailUser).Context(ctx).Do()
	if err != nil {
		return "", 0, classify("profile", err)
	}
	return profile.EmailAddress, profile.HistoryId, nil
}

// classify wraps an upstream failure, marking network errors, timeouts, and
// 5xx responses as retryable.
func classify(op string, err error) error {
	retryable := false

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		retryable = apiErr.Code >= http.StatusInternalServerError ||
			apiErr.Code == http.StatusTooManyRequests
	} else {
		var netErr net.Error
		if errors.As(err, &netErr) {
			retryable = true
		} else if errors.Is(err, context.DeadlineExceeded) {
			retryable = true
		}
	}

	return &UpstreamError{Op: op, Err: err, Retryable: retryable}
}
