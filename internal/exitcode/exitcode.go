// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, unknown reference, ambiguous name).
	UserError = 1

	// AuthError indicates an auth/config error: not connected to Google,
	// no backend session, or a Google 401/403.
	AuthError = 2

	// BackendError indicates a backend/API/network error, including quota.
	BackendError = 3
)
