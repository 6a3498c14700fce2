package anthropic

import (
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"
)

// Stable user-facing errors for failure classes that callers surface
// directly. Generic provider failures stay wrapped with their context.
var (
	// ErrAuth indicates the API rejected the configured credentials.
	ErrAuth = eris.New("anthropic: authentication failed, check the configured API key")

	// ErrRateLimited indicates the API throttled the request.
	ErrRateLimited = eris.New("anthropic: rate limited, try again shortly")
)

// StatusCode extracts the HTTP status code from an SDK error anywhere in the
// chain. Returns 0 when the error did not originate from an API response.
func StatusCode(err error) int {
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode
	}
	return 0
}

// Classify maps an error from a CreateMessage call onto the stable error
// values above. Wrapped errors (including retry-exhausted wrappers) are
// unwrapped through the chain before classification.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	switch StatusCode(err) {
	case 401, 403:
		return ErrAuth
	case 429:
		return ErrRateLimited
	default:
		return err
	}
}

// IsRetryable reports whether the error is worth retrying: rate limits,
// request timeouts and server-side failures.
func IsRetryable(err error) bool {
	switch code := StatusCode(err); {
	case code == 408, code == 429:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}
