package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/isdelr/hackernews-be/internal/apperr"
	"github.com/isdelr/hackernews-be/internal/resolvers"
	"github.com/rs/zerolog/log"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the stable kind and a readable message.
type ErrorDetail struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// WriteError logs err and writes it as an ErrorBody with the status its kind maps to.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("kind", string(kind)).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")

	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: apperr.MessageOf(err)}})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.InvalidInput, "invalid request body", err)
	}
	return nil
}

// requestContext returns the per-request context installed by the gateway middleware.
func requestContext(r *http.Request) (*resolvers.RequestContext, error) {
	rc, ok := resolvers.FromContext(r.Context())
	if !ok {
		return nil, apperr.New(apperr.Internal, "request context missing")
	}
	return rc, nil
}
