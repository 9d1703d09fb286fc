package cartclient

import (
	"fmt"
	"net/http"

	"github.com/natededev/de-commerce/internal/domain"
)

// APIError is a non-success envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return e.Message
}

// Unwrap maps the envelope code (or, without one, the status) onto the
// domain sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "validation":
		return domain.ErrValidation
	case "out_of_stock":
		return domain.ErrOutOfStock
	case "ownership":
		return domain.ErrOwnership
	case "not_authenticated":
		return domain.ErrNotAuthenticated
	case "forbidden":
		return domain.ErrForbidden
	case "not_found":
		return domain.ErrNotFound
	case "conflict":
		return domain.ErrAlreadyExists
	case "sync_failed":
		return domain.ErrSyncFailed
	}
	switch e.Status {
	case http.StatusUnauthorized:
		return domain.ErrNotAuthenticated
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrAlreadyExists
	case http.StatusBadRequest:
		return domain.ErrValidation
	}
	return nil
}

// retryable reports whether the status is a gateway-level failure worth
// retrying on an idempotent request.
func (e *APIError) retryable() bool {
	switch e.Status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
