package errs

import (
	"strconv"
	"time"
)

// Success message string
const (
	SUCCESS       = "Success"
	UNREACHABLE   = 901 // endpoint could not be reached
	TIMEOUT       = 902 // endpoint did not answer within its bound
	UNAUTHORIZED  = 903 // endpoint answered 401 for the current token
	BAD_STATUS    = 904 // endpoint answered with a non-2xx status
	EXHAUSTED     = 905 // every candidate failed
	NO_ENDPOINTS  = 906 // nothing to try at all
	THROTTLED     = 907 // background call rejected by the rate limiter
	UNKNOWN_ERROR = 999
)

var codeNames = map[int]string{
	UNREACHABLE:   "unreachable",
	TIMEOUT:       "timeout",
	UNAUTHORIZED:  "unauthorized",
	BAD_STATUS:    "bad_status",
	EXHAUSTED:     "exhausted",
	NO_ENDPOINTS:  "no_endpoints",
	THROTTLED:     "throttled",
	UNKNOWN_ERROR: "unknown",
}

// CodeName returns the symbolic name for a code, for logs and metrics labels.
func CodeName(code int) string {
	if name, ok := codeNames[code]; ok {
		return name
	}
	return strconv.Itoa(code)
}

// Timeout builds the timeout error for one attempt. The message carries the
// configured bound so a log line is enough to diagnose a slow endpoint.
func Timeout(d time.Duration, cause error) error {
	return Wrapf(TIMEOUT, cause, "no response within %s", d)
}

// IsTimeout reports whether e is a per-attempt timeout.
func IsTimeout(e error) bool {
	return Code(e) == TIMEOUT
}

// IsUnauthorized reports whether e is a 401 from a reachable endpoint.
func IsUnauthorized(e error) bool {
	return Code(e) == UNAUTHORIZED
}

// IsExhausted reports whether e means every candidate was tried and failed.
func IsExhausted(e error) bool {
	return Code(e) == EXHAUSTED
}

// IsNoEndpoints reports whether e means there was nothing to try.
func IsNoEndpoints(e error) bool {
	return Code(e) == NO_ENDPOINTS
}
