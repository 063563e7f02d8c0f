// Package google holds the plumbing shared by the Gmail and Calendar clients:
// scopes, token persistence, rate limiting and error classification.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"

	"edger/internal/service"
)

// API names used in user-facing error messages.
const (
	GmailAPI    = "Gmail API"
	CalendarAPI = "Calendar API"
)

// Kind classifies a failed Google API call.
type Kind int

const (
	KindOther Kind = iota
	KindQuota
	KindAuth
	KindPermission
	KindNotFound
	KindTimeout
)

// APIError is a classified Google API failure.
type APIError struct {
	API     string
	Kind    Kind
	Message string

	// RetryAfter is set for quota errors when Google sent a Retry-After header.
	RetryAfter time.Duration

	Err error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

// Is maps the classification onto the service sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case service.ErrQuotaExceeded:
		return e.Kind == KindQuota
	case service.ErrUnauthorized:
		return e.Kind == KindAuth
	case service.ErrForbidden:
		return e.Kind == KindPermission
	case service.ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

// ErrorHandlers are notified about classified failures.
// Either field may be nil.
type ErrorHandlers struct {
	OnQuotaExceeded func()
	OnAPIError      func(message string)
}

// quotaReasons are googleapi error reasons that mean the same as a 429.
var quotaReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
}

// Classify converts err into an *APIError for the named API and notifies h.
// nil stays nil.
func Classify(api string, err error, h *ErrorHandlers) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	e := &APIError{API: api, Err: err}

	var gerr *googleapi.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Kind = KindTimeout
		e.Message = "request timed out"
	case errors.As(err, &gerr):
		e.Kind, e.Message = classifyGoogle(api, gerr)
		if e.Kind == KindQuota {
			e.RetryAfter = retryAfter(gerr.Header)
		}
	default:
		e.Message = err.Error()
		if e.Message == "" {
			e.Message = fmt.Sprintf("Unknown %s error", api)
		}
	}

	if h != nil {
		if e.Kind == KindQuota {
			if h.OnQuotaExceeded != nil {
				h.OnQuotaExceeded()
			}
		} else if h.OnAPIError != nil {
			h.OnAPIError(e.Message)
		}
	}
	return e
}

func classifyGoogle(api string, gerr *googleapi.Error) (Kind, string) {
	if gerr.Code == http.StatusTooManyRequests || hasQuotaReason(gerr) {
		return KindQuota, fmt.Sprintf("%s quota exceeded. Please try again later.", api)
	}
	switch gerr.Code {
	case http.StatusForbidden:
		return KindPermission, fmt.Sprintf("Insufficient permissions for %s. Please reconnect your account.", api)
	case http.StatusUnauthorized:
		return KindAuth, fmt.Sprintf("%s authentication failed. Please reconnect your account.", api)
	case http.StatusNotFound:
		return KindNotFound, "not found"
	}
	if gerr.Message != "" {
		return KindOther, gerr.Message
	}
	return KindOther, fmt.Sprintf("Unknown %s error", api)
}

func hasQuotaReason(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		if quotaReasons[item.Reason] {
			return true
		}
	}
	return false
}

func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
