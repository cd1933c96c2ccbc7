package jobs

import (
	"net/http"
	"strings"
)

// ParseRoute extracts the entry ID and action from a URL path like
// /api/entries/{id}/{action}. apiPrefix should be like "/api/entries/".
// Returns the entry ID and action, or ok=false if the path is invalid.
// A missing action segment yields action "" with ok=true, so handlers can
// route /api/entries/{id} itself.
func ParseRoute(path, apiPrefix string) (entryID, action string, ok bool) {
	rest := strings.TrimPrefix(path, apiPrefix)
	if rest == path || rest == "" {
		return "", "", false
	}

	parts := strings.SplitN(rest, "/", 2)
	entryID = parts[0]
	if entryID == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		action = strings.TrimSuffix(parts[1], "/")
	}
	return entryID, action, true
}

// CheckOwnership verifies the userId query param matches the entry's owner.
// Edits and deletes are rejected as not-found rather than forbidden so the
// existence of another user's entry is not revealed.
func CheckOwnership(r *http.Request, entryUserID string) bool {
	userID := r.URL.Query().Get("userId")
	return userID != "" && userID == entryUserID
}
