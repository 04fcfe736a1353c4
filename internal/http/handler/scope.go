package handler

import (
	"net/http"

	"github.com/jaekwang-park/weekplan/internal/middleware"
	"github.com/jaekwang-park/weekplan/internal/session"
)

// checkScope verifies that the identity resolved for the request matches the
// planner session scope before a handler touches the registry. A guest
// request is only served while the session is in guest scope, and a bearer
// token is only honored for the user the session is logged in as. On a
// mismatch the error response is written and false is returned.
func checkScope(w http.ResponseWriter, r *http.Request, sessions *session.Manager) bool {
	current := sessions.Current()
	requestUser := middleware.GetUserID(r)

	switch {
	case requestUser == current.UserID:
		return true
	case requestUser == "":
		WriteError(w, http.StatusUnauthorized, "AUTH_REQUIRED", "an account session is active; credentials are required")
	default:
		WriteError(w, http.StatusForbidden, "SCOPE_MISMATCH", "token identity does not match the active session")
	}
	return false
}
