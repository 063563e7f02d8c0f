// Package gmail implements service.Mail using the Gmail API.
package gmail

import (
	"context"
	"fmt"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"edger/internal/backend/google"
	"edger/internal/service"
)

const (
	// UserID is the special id for the authenticated user.
	UserID = "me"

	// cacheSize bounds the number of cached message payloads.
	cacheSize = 256

	// fetchConcurrency bounds parallel message fetches.
	fetchConcurrency = 5
)

type cacheKey struct {
	id     string
	format service.MessageFormat
}

// Client implements service.Mail using the Gmail API.
type Client struct {
	svc    *gmailapi.Service
	caller *google.Caller
	cache  *lru.Cache[cacheKey, service.Message]
}

var _ service.Mail = (*Client)(nil)

// New creates a Gmail client on top of an authorised HTTP client.
// Extra options (such as an endpoint override) are passed to the API library.
func New(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	cache, err := lru.New[cacheKey, service.Message](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Client{
		svc:    svc,
		caller: google.NewCaller(google.GmailAPI),
		cache:  cache,
	}, nil
}

// SetErrorHandlers installs quota and API error hooks.
func (c *Client) SetErrorHandlers(h *google.ErrorHandlers) {
	c.caller.SetErrorHandlers(h)
}

// ListMessages lists message ids matching q.
func (c *Client) ListMessages(ctx context.Context, q service.MessageQuery) (service.MessagePage, error) {
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = service.DefaultMaxResults
	}

	var resp *gmailapi.ListMessagesResponse
	err := c.caller.Do(ctx, "messages.list", func(ctx context.Context) error {
		call := c.svc.Users.Messages.List(UserID).
			MaxResults(maxResults).
			IncludeSpamTrash(q.IncludeSpamTrash).
			Context(ctx)
		if q.Q != "" {
			call = call.Q(q.Q)
		}
		if len(q.LabelIDs) > 0 {
			call = call.LabelIds(q.LabelIDs...)
		}
		if q.PageToken != "" {
			call = call.PageToken(q.PageToken)
		}
		var err error
		resp, err = call.Do()
		return err
	})
	if err != nil {
		return service.MessagePage{}, err
	}

	page := service.MessagePage{
		NextPageToken:      resp.NextPageToken,
		ResultSizeEstimate: resp.ResultSizeEstimate,
	}
	for _, m := range resp.Messages {
		page.Messages = append(page.Messages, service.MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return page, nil
}

// GetMessage fetches one message. Results are cached per id and format.
func (c *Client) GetMessage(ctx context.Context, id string, format service.MessageFormat) (service.Message, error) {
	if format == "" {
		format = service.FormatFull
	}
	key := cacheKey{id: id, format: format}
	if m, ok := c.cache.Get(key); ok {
		return m, nil
	}

	var msg *gmailapi.Message
	err := c.caller.Do(ctx, "messages.get", func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Users.Messages.Get(UserID, id).Format(string(format)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return service.Message{}, err
	}

	m := convertMessage(msg)
	c.cache.Add(key, m)
	return m, nil
}

// FetchMessages fetches several messages concurrently, preserving order.
func (c *Client) FetchMessages(ctx context.Context, ids []string, format service.MessageFormat) ([]service.Message, error) {
	out := make([]service.Message, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			m, err := c.GetMessage(ctx, id, format)
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetThread fetches a thread with its messages.
func (c *Client) GetThread(ctx context.Context, id string, format service.MessageFormat) (service.Thread, error) {
	if format == "" {
		format = service.FormatFull
	}

	var th *gmailapi.Thread
	err := c.caller.Do(ctx, "threads.get", func(ctx context.Context) error {
		var err error
		th, err = c.svc.Users.Threads.Get(UserID, id).Format(string(format)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return service.Thread{}, err
	}

	out := service.Thread{ID: th.Id, HistoryID: th.HistoryId}
	for _, m := range th.Messages {
		out.Messages = append(out.Messages, convertMessage(m))
	}
	return out, nil
}

// Labels returns the mailbox labels.
func (c *Client) Labels(ctx context.Context) ([]service.Label, error) {
	var resp *gmailapi.ListLabelsResponse
	err := c.caller.Do(ctx, "labels.list", func(ctx context.Context) error {
		var err error
		resp, err = c.svc.Users.Labels.List(UserID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	labels := make([]service.Label, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		labels = append(labels, convertLabel(l))
	}
	return labels, nil
}

// ModifyLabels adds and removes labels on a message and evicts it from the cache.
func (c *Client) ModifyLabels(ctx context.Context, id string, add, remove []string) error {
	err := c.caller.Do(ctx, "messages.modify", func(ctx context.Context) error {
		_, err := c.svc.Users.Messages.Modify(UserID, id, &gmailapi.ModifyMessageRequest{
			AddLabelIds:    add,
			RemoveLabelIds: remove,
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return err
	}
	for _, f := range []service.MessageFormat{service.FormatMinimal, service.FormatFull, service.FormatRaw, service.FormatMetadata} {
		c.cache.Remove(cacheKey{id: id, format: f})
	}
	return nil
}

func convertMessage(m *gmailapi.Message) service.Message {
	return service.Message{
		ID:           m.Id,
		ThreadID:     m.ThreadId,
		LabelIDs:     m.LabelIds,
		Snippet:      m.Snippet,
		HistoryID:    m.HistoryId,
		InternalDate: m.InternalDate,
		SizeEstimate: m.SizeEstimate,
		Payload:      convertPart(m.Payload),
	}
}

func convertPart(p *gmailapi.MessagePart) *service.Part {
	if p == nil {
		return nil
	}
	out := &service.Part{
		PartID:   p.PartId,
		MimeType: p.MimeType,
		Filename: p.Filename,
	}
	for _, h := range p.Headers {
		out.Headers = append(out.Headers, service.Header{Name: h.Name, Value: h.Value})
	}
	if p.Body != nil {
		out.Body = &service.Body{
			AttachmentID: p.Body.AttachmentId,
			Size:         p.Body.Size,
			Data:         p.Body.Data,
		}
	}
	for _, child := range p.Parts {
		out.Parts = append(out.Parts, convertPart(child))
	}
	return out
}

func convertLabel(l *gmailapi.Label) service.Label {
	out := service.Label{
		ID:                    l.Id,
		Name:                  l.Name,
		Type:                  l.Type,
		MessageListVisibility: l.MessageListVisibility,
		LabelListVisibility:   l.LabelListVisibility,
		MessagesTotal:         l.MessagesTotal,
		MessagesUnread:        l.MessagesUnread,
		ThreadsTotal:          l.ThreadsTotal,
		ThreadsUnread:         l.ThreadsUnread,
	}
	if l.Color != nil {
		out.TextColor = l.Color.TextColor
		out.BackgroundColor = l.Color.BackgroundColor
	}
	return out
}
