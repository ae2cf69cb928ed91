package api

import (
	"errors"
	"net/http"

	"github.com/codequest-app/codequest/internal/app/engagement"
	"github.com/codequest-app/codequest/internal/domain"
	"github.com/codequest-app/codequest/internal/infra/backend"
)

// errorStatus maps an application error to an HTTP status and error type.
func errorStatus(err error) (int, string) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, "session_expired"
	case errors.Is(err, domain.ErrNoSession):
		return http.StatusUnauthorized, "no_session"
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrCourseNotFound),
		errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrRewardNotFound),
		errors.Is(err, domain.ErrUnknownGame):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrRewardUnlocked),
		errors.Is(err, engagement.ErrDailyCollected):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrInsufficientPoints),
		errors.Is(err, domain.ErrInvalidStake),
		errors.Is(err, domain.ErrNegativeValue):
		return http.StatusUnprocessableEntity, "rejected"
	case errors.Is(err, domain.ErrLockTimeout):
		return http.StatusServiceUnavailable, "busy"
	case errors.Is(err, domain.ErrMalformedContent):
		return http.StatusInternalServerError, "content_unavailable"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "backend_error"
	}
	return http.StatusInternalServerError, "internal"
}

// fail writes err as a JSON error. Expired sessions are reported to the
// session manager, which signs the user out.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if s.svc.Sessions != nil {
		s.svc.Sessions.Check(err)
	}
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, code, err.Error())
}
