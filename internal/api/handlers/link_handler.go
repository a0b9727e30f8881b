package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/hackernews-be/internal/apperr"
	"github.com/isdelr/hackernews-be/internal/resolvers"
)

// LinkHandler handles HTTP requests related to links.
type LinkHandler struct {
	resolver *resolvers.Resolver
	retrier  Retrier
}

// NewLinkHandler creates a new LinkHandler. Only the read-only operations are retried.
func NewLinkHandler(resolver *resolvers.Resolver, retrier Retrier) *LinkHandler {
	return &LinkHandler{resolver: resolver, retrier: retrier}
}

// PostPayload defines the structure for post requests.
type PostPayload struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Info returns the static API description.
func (h *LinkHandler) Info(w http.ResponseWriter, r *http.Request) {
	rc, err := requestContext(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"info": h.resolver.Info(rc)})
}

// Feed returns every link.
func (h *LinkHandler) Feed(w http.ResponseWriter, r *http.Request) {
	rc, err := requestContext(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var feed []resolvers.LinkPayload
	err = h.retrier.Do(r.Context(), func(ctx context.Context) error {
		var ferr error
		feed, ferr = h.resolver.Feed(ctx, rc)
		return ferr
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// Get returns a single link by id.
func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	rc, err := requestContext(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	id, err := linkIDParam(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var link resolvers.LinkPayload
	err = h.retrier.Do(r.Context(), func(ctx context.Context) error {
		var lerr error
		link, lerr = h.resolver.Link(ctx, rc, id)
		return lerr
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// Post creates a link owned by the caller.
func (h *LinkHandler) Post(w http.ResponseWriter, r *http.Request) {
	rc, err := requestContext(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	// Reject anonymous callers before touching the body.
	if _, err := rc.Identity.Require(); err != nil {
		WriteError(w, r, err)
		return
	}

	var payload PostPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	link, err := h.resolver.Post(r.Context(), rc, payload.URL, payload.Description)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// Vote records the caller's vote for the link in the path.
func (h *LinkHandler) Vote(w http.ResponseWriter, r *http.Request) {
	rc, err := requestContext(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if _, err := rc.Identity.Require(); err != nil {
		WriteError(w, r, err)
		return
	}
	linkID, err := linkIDParam(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	vote, err := h.resolver.Vote(r.Context(), rc, linkID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, vote)
}

func linkIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.InvalidInput, "link id must be a positive integer")
	}
	return id, nil
}
