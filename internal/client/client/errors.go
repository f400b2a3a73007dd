package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrSyncFailure           = errors.New("sync failure")
	ErrTimeout               = fmt.Errorf("%w: timeout", ErrSyncFailure)
	ErrValidation            = errors.New("validation failure")
	ErrNotFound              = errors.New("not found")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)

// APIError carries a non-2xx response. It unwraps to the sentinel kind the
// status maps to.
type APIError struct {
	StatusCode int
	Body       string
	kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%v: status=%d body=%s", e.kind, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.kind }

func mapStatus(code int, body string) error {
	var kind error
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrUnauthenticated
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
		kind = ErrValidation
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		kind = ErrTimeout
	default:
		kind = ErrSyncFailure
	}
	return &APIError{StatusCode: code, Body: body, kind: kind}
}

// mapError converts a transport-level failure into one of the sentinel kinds.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrSyncFailure, err)
}
