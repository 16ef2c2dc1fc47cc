package api

import (
	"errors"
	"net/http"

	"github.com/reminisce-ai/reminisce/internal/domain"
	"github.com/reminisce-ai/reminisce/internal/provider"
)

// statusFor translates domain and provider errors to the HTTP status and
// user-facing detail string. Timeouts are distinguished from generic
// connectivity failures so the caller can decide whether to retry.
func statusFor(err error) (int, string) {
	var pe *provider.Error
	if errors.As(err, &pe) {
		switch pe.Kind {
		case provider.KindUnconfigured:
			return http.StatusInternalServerError, pe.Detail
		case provider.KindTimeout:
			return http.StatusGatewayTimeout, pe.Detail
		case provider.KindUnavailable:
			return http.StatusServiceUnavailable, pe.Detail
		case provider.KindBadInput:
			return http.StatusBadRequest, pe.Detail
		case provider.KindRejected:
			// Propagate the remote status when it is a sensible HTTP code.
			if pe.Status >= 400 && pe.Status < 600 {
				return pe.Status, pe.Detail
			}
			return http.StatusBadGateway, pe.Detail
		}
	}

	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrDuplicateUsername):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, "not enough credits; please buy more"
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "an unexpected problem occurred"
	}
}
