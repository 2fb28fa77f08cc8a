package gateway

import "errors"

// Error kinds surfaced by the client. Callers pick between aborting the run
// (authorization) and skipping the current unit of work (parse, transient).
var (
	// ErrAuthorization marks a 401/403 response. Fatal, never retried.
	ErrAuthorization = errors.New("bitbucket: authorization failed")

	// ErrRateLimited marks a 429 that survived the whole retry budget.
	ErrRateLimited = errors.New("bitbucket: rate limit retries exhausted")

	// ErrTransient marks a 5xx or network failure that survived the whole
	// retry budget.
	ErrTransient = errors.New("bitbucket: transient failure retries exhausted")

	// ErrParse marks a response body that could not be decoded.
	ErrParse = errors.New("bitbucket: malformed response")
)
