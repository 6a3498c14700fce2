package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// Providers wrap their HTTP failures inconsistently, so classification walks
// the error chain first and falls back to message sniffing for errors that
// arrive pre-stringified.
var transientFragments = []string{
	"connection reset by peer",
	"broken pipe",
	"no such host",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"transport connection broken",
	"too many requests",
	"service unavailable",
	"gateway timeout",
	"overloaded",
}

// IsTransient reports whether err looks like a passing infrastructure
// failure: a network timeout, a dropped connection, or a throttled or
// overloaded upstream. Schema and auth failures are not transient; retrying
// those wastes the document's budget.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range transientFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
