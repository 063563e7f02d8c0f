package commands

import "time"

// SetNow replaces the command clock and returns a func restoring it.
func SetNow(f func() time.Time) func() {
	prev := now
	now = f
	return func() { now = prev }
}

// SetBrowserOpener replaces the consent URL handler used by login.
func SetBrowserOpener(openBrowser func(string) error) func() {
	prev := browserOpener
	browserOpener = openBrowser
	return func() { browserOpener = prev }
}
