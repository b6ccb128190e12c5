package server

import (
	"net/http"

	"crescendo/internal/feed"
	"crescendo/internal/metrics"
	"crescendo/pkg/models"
)

// favouriteRequest is the body for favourite add/remove operations.
type favouriteRequest struct {
	Kind     models.FavouriteKind `json:"kind"`
	EntityID int64                `json:"entityId"`
}

// handleFavourites dispatches the favourites collection endpoint.
func (ms *MediaServer) handleFavourites(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ms.handleListFavourites(w, r)
	case http.MethodPost:
		ms.handleAddFavourite(w, r)
	case http.MethodDelete:
		ms.handleRemoveFavourite(w, r)
	default:
		ms.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleListFavourites returns the caller's enriched favourites of one kind.
// Anonymous callers get an empty list rather than an error.
func (ms *MediaServer) handleListFavourites(w http.ResponseWriter, r *http.Request) {
	kind := models.FavouriteKind(r.URL.Query().Get("kind"))
	if !kind.Valid() {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid favourite kind", nil)
		return
	}

	username, _ := ms.authService.Identify(r)
	rc := feed.RequestContext{Username: username}

	items, err := ms.feedService.FavouritesFor(rc, kind, feed.ParseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Failed to list favourites", err)
		return
	}

	ms.respondJSON(w, http.StatusOK, items)
}

// handleAddFavourite saves a favourite for the authenticated caller. Adding
// the same favourite twice is reported, not treated as an error.
func (ms *MediaServer) handleAddFavourite(w http.ResponseWriter, r *http.Request) {
	username, ok := ms.authService.Identify(r)
	if !ok {
		ms.respondWithError(w, r, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req favouriteRequest
	if err := decodeJSON(r, &req); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if !req.Kind.Valid() || req.EntityID <= 0 {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid favourite kind or entity id", nil)
		return
	}

	created, err := ms.db.AddFavourite(username, req.Kind, req.EntityID)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Failed to save favourite", err)
		return
	}

	metrics.FavouriteTogglesTotal.WithLabelValues("add").Inc()
	ms.respondJSON(w, http.StatusOK, map[string]interface{}{
		"created":          created,
		"alreadyFavourite": !created,
	})
}

// handleRemoveFavourite removes a favourite. Removing a favourite that does
// not exist succeeds silently.
func (ms *MediaServer) handleRemoveFavourite(w http.ResponseWriter, r *http.Request) {
	username, ok := ms.authService.Identify(r)
	if !ok {
		ms.respondWithError(w, r, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req favouriteRequest
	if err := decodeJSON(r, &req); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if !req.Kind.Valid() || req.EntityID <= 0 {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid favourite kind or entity id", nil)
		return
	}

	if err := ms.db.RemoveFavourite(username, req.Kind, req.EntityID); err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Failed to remove favourite", err)
		return
	}

	metrics.FavouriteTogglesTotal.WithLabelValues("remove").Inc()
	ms.respondJSON(w, http.StatusOK, map[string]interface{}{"removed": true})
}
