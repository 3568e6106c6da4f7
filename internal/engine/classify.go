// internal/engine/classify.go
package engine

import "strings"

// ErrorKind is the typed failure taxonomy at the dispatcher boundary.
type ErrorKind string

const (
	KindTargetMissing    ErrorKind = "target_missing"
	KindTimeout          ErrorKind = "timeout"
	KindInvalidSelector  ErrorKind = "invalid_selector"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindCancelled        ErrorKind = "cancelled"
	KindTransient        ErrorKind = "transient"
	KindNeedsResolution  ErrorKind = "needs_resolution"
	KindUnsupported      ErrorKind = "unsupported"
	KindUnknown          ErrorKind = "unknown"
)

// pattern maps a legacy error message substring to a typed kind. The string
// vocabulary mirrors what page automation layers actually emit; matching is
// case insensitive substring.
type pattern struct {
	substr string
	kind   ErrorKind
}

// Non-retryable patterns take precedence: a message like "timeout while
// parsing invalid selector" must stop immediately even though it also
// contains a retryable substring.
var nonRetryablePatterns = []pattern{
	{"invalid selector", KindInvalidSelector},
	{"malformed selector", KindInvalidSelector},
	{"is not a valid selector", KindInvalidSelector},
	{"permission denied", KindPermissionDenied},
	{"not allowed", KindPermissionDenied},
	{"cancelled", KindCancelled},
	{"canceled", KindCancelled},
	{"requires semantic resolution", KindNeedsResolution},
	{"unsupported action", KindUnsupported},
	{"requires a target", KindUnsupported},
	{"requires a non-empty", KindUnsupported},
}

var retryablePatterns = []pattern{
	{"timed out", KindTimeout},
	{"timeout", KindTimeout},
	{"deadline exceeded", KindTimeout},
	{"could not find node", KindTargetMissing},
	{"no element", KindTargetMissing},
	{"not found", KindTargetMissing},
	{"not visible", KindTargetMissing},
	{"did not match", KindTargetMissing},
	{"rate limit", KindTransient},
	{"too many requests", KindTransient},
	{"stale", KindTransient},
	{"detached", KindTransient},
	{"temporarily", KindTransient},
	{"connection reset", KindTransient},
	{"target crashed", KindTransient},
}

// Classify maps a raw error message to a typed kind. Non-retryable patterns
// win over retryable ones; anything unrecognized is KindUnknown.
func Classify(msg string) ErrorKind {
	lower := strings.ToLower(msg)
	for _, p := range nonRetryablePatterns {
		if strings.Contains(lower, p.substr) {
			return p.kind
		}
	}
	for _, p := range retryablePatterns {
		if strings.Contains(lower, p.substr) {
			return p.kind
		}
	}
	return KindUnknown
}

// Retryable reports whether a failure of the given kind is safe to retry
// automatically. Unknown failures are not retried: blind retries of an
// unclassified error tend to hammer a page that is already misbehaving.
func Retryable(kind ErrorKind) bool {
	switch kind {
	case KindTimeout, KindTargetMissing, KindTransient:
		return true
	default:
		return false
	}
}
