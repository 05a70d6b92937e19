// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/autosales/internal/shared"
)

// stateConflict is implemented by lifecycle transition failures.
type stateConflict interface {
	CurrentState() string
	RequestedState() string
	NoOp() bool
}

// StatusFor maps domain errors to a stable HTTP status and title.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "Too Many Requests"
	case errors.Is(err, shared.ErrAuthorityUnavailable):
		return http.StatusServiceUnavailable, "Service Unavailable"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, shared.ErrAlreadyInState):
		return http.StatusConflict, "Already In State"
	case errors.Is(err, shared.ErrStatusConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, shared.ErrVehicleUnavailable):
		return http.StatusConflict, "Vehicle Unavailable"
	case errors.Is(err, shared.ErrDuplicate):
		return http.StatusConflict, "Duplicate"
	case errors.Is(err, shared.ErrInvalidTransition):
		return http.StatusBadRequest, "Invalid Transition"
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest, "Validation Failed"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807. The detail
// is a fixed message per status; raw error text is never sent to the client.
func RespondError(w http.ResponseWriter, err error) {
	status, title := StatusFor(err)
	problem := ProblemDetail{
		Title:  title,
		Status: status,
		Detail: genericDetail(status),
	}
	var sc stateConflict
	if errors.As(err, &sc) {
		noop := sc.NoOp()
		problem.CurrentStatus = sc.CurrentState()
		problem.RequestedStatus = sc.RequestedState()
		problem.NoOp = &noop
	}
	writeProblem(w, problem)
}

func genericDetail(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return "rate limit exceeded"
	case http.StatusUnauthorized:
		return "authentication required"
	case http.StatusForbidden:
		return "access denied"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusConflict:
		return "request conflicts with current resource state"
	case http.StatusBadRequest:
		return "request rejected"
	default:
		return ""
	}
}

// LogAndRespond logs err at a level matching its mapped status, then writes
// the problem response. Only 5xx faults log at error level.
func LogAndRespond(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	status, _ := StatusFor(err)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error(op, slog.Any("error", err))
	case errors.Is(err, shared.ErrStatusConflict):
		logger.Warn(op, slog.Any("error", err))
	default:
		logger.Debug(op, slog.Any("error", err))
	}
	RespondError(w, err)
}
