package analysis

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrRunNotFound indicates the requested run does not exist for the tenant.
var ErrRunNotFound = errors.New("analysis run not found")
