package service

import (
	"encoding/base64"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"time"
)

// MessageFormat selects how much of a message Gmail returns.
type MessageFormat string

const (
	FormatMinimal  MessageFormat = "minimal"
	FormatFull     MessageFormat = "full"
	FormatRaw      MessageFormat = "raw"
	FormatMetadata MessageFormat = "metadata"
)

// Well-known system label ids.
const (
	LabelUnread    = "UNREAD"
	LabelImportant = "IMPORTANT"
	LabelStarred   = "STARRED"
	LabelInbox     = "INBOX"
)

// DefaultMaxResults is the Gmail listing size when none is given.
const DefaultMaxResults = 10

// MessageQuery filters a message listing.
type MessageQuery struct {
	Q                string
	LabelIDs         []string
	IncludeSpamTrash bool
	MaxResults       int64
	PageToken        string
}

// SearchQuery builds a free-text search listing.
func SearchQuery(q string, maxResults int64, pageToken string) MessageQuery {
	return MessageQuery{Q: q, MaxResults: maxResults, PageToken: pageToken}
}

// LabelQuery builds a listing restricted to one label.
func LabelQuery(labelID string, maxResults int64, pageToken string) MessageQuery {
	return MessageQuery{LabelIDs: []string{labelID}, MaxResults: maxResults, PageToken: pageToken}
}

// MessageRef identifies a message in a listing.
type MessageRef struct {
	ID       string
	ThreadID string
}

// MessagePage is one page of a message listing.
type MessagePage struct {
	Messages           []MessageRef
	NextPageToken      string
	ResultSizeEstimate int64
}

// Header is a single MIME header.
type Header struct {
	Name  string
	Value string
}

// Body is the data of a MIME part. Data is base64url encoded.
type Body struct {
	AttachmentID string
	Size         int64
	Data         string
}

// Part is a node of the MIME payload tree.
type Part struct {
	PartID   string
	MimeType string
	Filename string
	Headers  []Header
	Body     *Body
	Parts    []*Part
}

// Message is a Gmail message.
type Message struct {
	ID           string
	ThreadID     string
	LabelIDs     []string
	Snippet      string
	HistoryID    uint64
	InternalDate int64 // Unix milliseconds
	SizeEstimate int64
	Payload      *Part
}

// Thread is a Gmail conversation.
type Thread struct {
	ID        string
	HistoryID uint64
	Messages  []Message
}

// Label is a Gmail label with optional counters.
type Label struct {
	ID                    string
	Name                  string
	Type                  string
	MessageListVisibility string
	LabelListVisibility   string
	MessagesTotal         int64
	MessagesUnread        int64
	ThreadsTotal          int64
	ThreadsUnread         int64
	TextColor             string
	BackgroundColor       string
}

// Header returns the value of the named header, matched case-insensitively.
func (m Message) Header(name string) (string, bool) {
	if m.Payload == nil {
		return "", false
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Subject returns the Subject header or "(No Subject)".
func (m Message) Subject() string {
	return m.headerOr("Subject", "(No Subject)")
}

// From returns the From header or "Unknown Sender".
func (m Message) From() string {
	return m.headerOr("From", "Unknown Sender")
}

// To returns the To header or "Unknown Recipient".
func (m Message) To() string {
	return m.headerOr("To", "Unknown Recipient")
}

func (m Message) headerOr(name, fallback string) string {
	if v, ok := m.Header(name); ok && v != "" {
		return v
	}
	return fallback
}

// Date returns the Date header, falling back to the internal date.
// It is the zero time when neither is known.
func (m Message) Date() time.Time {
	if v, ok := m.Header("Date"); ok && v != "" {
		if t, err := mail.ParseDate(v); err == nil {
			return t
		}
	}
	if m.InternalDate == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.InternalDate)
}

// Body returns the readable text of the message: the payload body, else the
// first text/plain part, else the first text/html part, else the snippet.
func (m Message) Body() string {
	if m.Payload == nil {
		return m.Snippet
	}
	if m.Payload.Body != nil && m.Payload.Body.Data != "" {
		if s, err := DecodeBase64URL(m.Payload.Body.Data); err == nil {
			return s
		}
	}
	for _, mime := range []string{"text/plain", "text/html"} {
		if p := findPart(m.Payload.Parts, mime); p != nil {
			if s, err := DecodeBase64URL(p.Body.Data); err == nil {
				return s
			}
		}
	}
	return m.Snippet
}

// findPart returns the first part of the given type with data, depth first.
func findPart(parts []*Part, mimeType string) *Part {
	for _, p := range parts {
		if p == nil {
			continue
		}
		if p.MimeType == mimeType && p.Body != nil && p.Body.Data != "" {
			return p
		}
		if found := findPart(p.Parts, mimeType); found != nil {
			return found
		}
	}
	return nil
}

// DecodeBase64URL decodes Gmail body data, with or without padding.
func DecodeBase64URL(data string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var addressPattern = regexp.MustCompile(`^(.*?)\s*<(.+)>$`)

// Address is a parsed "Name <email>" pair.
type Address struct {
	Name  string
	Email string
}

// ParseAddress splits a From/To value into display name and email.
// Values without angle brackets use the whole value for both.
func ParseAddress(s string) Address {
	if m := addressPattern.FindStringSubmatch(s); m != nil {
		name := strings.TrimSpace(m[1])
		if name != "" && (name[0] == '"' || name[0] == '\'') {
			name = name[1:]
		}
		if name != "" && (name[len(name)-1] == '"' || name[len(name)-1] == '\'') {
			name = name[:len(name)-1]
		}
		return Address{Name: name, Email: strings.TrimSpace(m[2])}
	}
	v := strings.TrimSpace(s)
	return Address{Name: v, Email: v}
}

// IsUnread reports whether the message carries the UNREAD label.
func (m Message) IsUnread() bool { return slices.Contains(m.LabelIDs, LabelUnread) }

// IsImportant reports whether the message carries the IMPORTANT label.
func (m Message) IsImportant() bool { return slices.Contains(m.LabelIDs, LabelImportant) }

// IsStarred reports whether the message carries the STARRED label.
func (m Message) IsStarred() bool { return slices.Contains(m.LabelIDs, LabelStarred) }
