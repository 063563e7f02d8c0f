package google

import (
	"strings"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
)

// OAuth scopes requested at consent.
const (
	ScopeGmailModify      = gmail.GmailModifyScope
	ScopeCalendarReadonly = calendar.CalendarReadonlyScope
	ScopeCalendarEvents   = calendar.CalendarEventsScope
	ScopeUserEmail        = "https://www.googleapis.com/auth/userinfo.email"
	ScopeUserProfile      = "https://www.googleapis.com/auth/userinfo.profile"
)

// Scopes returns every scope edger asks for.
func Scopes() []string {
	return []string{
		ScopeGmailModify,
		ScopeCalendarReadonly,
		ScopeCalendarEvents,
		ScopeUserEmail,
		ScopeUserProfile,
	}
}

// HasScope reports whether scope appears in the granted scope string.
func HasScope(granted, scope string) bool {
	return granted != "" && strings.Contains(granted, scope)
}

// MissingScopes returns the requested scopes not present in granted.
func MissingScopes(granted string) []string {
	var missing []string
	for _, s := range Scopes() {
		if !HasScope(granted, s) {
			missing = append(missing, s)
		}
	}
	return missing
}
