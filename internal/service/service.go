// Package service defines the backend-agnostic interfaces commands depend on.
package service

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConnected indicates no usable Google token is stored.
	ErrNotConnected = errors.New("not connected to Google (run: edger login)")

	// ErrNoSession indicates no backend session token is configured.
	ErrNoSession = errors.New("No authentication token available")

	// ErrNotFound is returned when a message, event or link does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates rejected Google credentials (401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates missing Google permissions (403).
	ErrForbidden = errors.New("forbidden")

	// ErrQuotaExceeded indicates a Google rate limit or quota (429).
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// Mail is the Gmail surface used by commands.
// All Gmail API calls go through this interface.
type Mail interface {
	// ListMessages lists message ids matching q.
	ListMessages(ctx context.Context, q MessageQuery) (MessagePage, error)

	// GetMessage fetches one message in the given format.
	GetMessage(ctx context.Context, id string, format MessageFormat) (Message, error)

	// FetchMessages fetches several messages concurrently.
	// The result order matches ids.
	FetchMessages(ctx context.Context, ids []string, format MessageFormat) ([]Message, error)

	// GetThread fetches a thread with all of its messages.
	GetThread(ctx context.Context, id string, format MessageFormat) (Thread, error)

	// Labels returns all labels of the mailbox.
	Labels(ctx context.Context) ([]Label, error)

	// ModifyLabels adds and removes labels on a message.
	ModifyLabels(ctx context.Context, id string, add, remove []string) error
}

// Calendar is the Google Calendar surface used by commands.
type Calendar interface {
	// Calendars lists the user's calendars.
	Calendars(ctx context.Context) ([]CalendarInfo, error)

	// Events lists single events ordered by start time.
	// Zero timeMin/timeMax leave the bound open.
	Events(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int) ([]Event, error)

	// CreateEvent inserts an event.
	CreateEvent(ctx context.Context, calendarID string, req EventRequest) (Event, error)

	// UpdateEvent patches an event; zero fields of req are left unchanged.
	UpdateEvent(ctx context.Context, calendarID, eventID string, req EventRequest) (Event, error)

	// DeleteEvent deletes an event.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error

	// FreeBusy queries busy intervals.
	FreeBusy(ctx context.Context, req FreeBusyRequest) (FreeBusyResponse, error)
}

// Backend is the task/agent/onboarding HTTP API.
type Backend interface {
	// Chat sends a message to the agent.
	Chat(ctx context.Context, message string) (AgentResponse, error)

	// CreateTask asks the backend to create a task.
	CreateTask(ctx context.Context, task TaskRequest) error

	// Tasks lists the user's tasks.
	Tasks(ctx context.Context) ([]Task, error)

	// OnboardingStatus reports whether the user finished onboarding.
	OnboardingStatus(ctx context.Context) (bool, error)

	// SubmitOnboarding stores onboarding answers.
	SubmitOnboarding(ctx context.Context, data Onboarding) error

	// SubmitToken forwards Google tokens to the backend.
	SubmitToken(ctx context.Context, tokens GoogleTokens) error
}

// Links records calendar events created for tasks.
type Links interface {
	SaveLink(ctx context.Context, link Link) error
	LinkByTask(ctx context.Context, title string) (Link, error)
	LinkByEvent(ctx context.Context, eventID string) (Link, error)
	Links(ctx context.Context) ([]Link, error)
	DeleteLink(ctx context.Context, eventID string) error
}

// Service bundles the collaborators available to a command.
// Mail and Calendar are nil unless Google is connected; Backend is nil
// unless the command asked for it.
type Service struct {
	Mail     Mail
	Calendar Calendar
	Backend  Backend
	Links    Links

	// Account is the connected Google user, if any.
	Account *Account

	// Tokens are the active Google tokens, if any.
	Tokens *GoogleTokens

	// Close releases resources held by the bundle (the link store).
	Close func() error
}

// Connected reports whether Google collaborators are available.
func (s *Service) Connected() bool {
	return s != nil && s.Mail != nil && s.Calendar != nil && s.Account != nil
}

// Needs describes which collaborators a command requires.
type Needs uint8

const (
	// NeedsGoogle requires a connected Google account.
	NeedsGoogle Needs = 1 << iota

	// WantsGoogle builds Google collaborators when a token exists.
	WantsGoogle

	// NeedsBackend requires a backend session.
	NeedsBackend

	// WantsBackend builds the backend client when a session exists.
	WantsBackend
)

// Has reports whether n includes flag.
func (n Needs) Has(flag Needs) bool {
	return n&flag != 0
}
