package apperr

import (
	"errors"
	"net/http"
)

// Kind is the stable, machine-readable category of an API error.
type Kind string

const (
	NotAuthenticated   Kind = "NOT_AUTHENTICATED"
	MissingToken       Kind = "MISSING_TOKEN"
	InvalidToken       Kind = "INVALID_TOKEN"
	InvalidCredentials Kind = "INVALID_CREDENTIALS"
	LoginTaken         Kind = "LOGIN_TAKEN"
	LinkNotFound       Kind = "LINK_NOT_FOUND"
	AlreadyVoted       Kind = "ALREADY_VOTED"
	DataUnavailable    Kind = "DATA_UNAVAILABLE"
	InvalidInput       Kind = "INVALID_INPUT"
	Internal           Kind = "INTERNAL"
)

// Error is an API error carrying a Kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match when target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels usable with errors.Is.
var (
	ErrNotAuthenticated   = New(NotAuthenticated, "not authenticated")
	ErrMissingToken       = New(MissingToken, "no token found")
	ErrInvalidToken       = New(InvalidToken, "invalid token")
	ErrInvalidCredentials = New(InvalidCredentials, "invalid login or password")
	ErrLoginTaken         = New(LoginTaken, "login is already taken")
	ErrLinkNotFound       = New(LinkNotFound, "link not found")
	ErrAlreadyVoted       = New(AlreadyVoted, "already voted for this link")
	ErrDataUnavailable    = New(DataUnavailable, "data store unavailable")
)

// New creates an Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the caller-facing message for err. Causes are not
// included so store details never reach the client.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps a Kind to the response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case NotAuthenticated, MissingToken, InvalidToken, InvalidCredentials:
		return http.StatusUnauthorized
	case LinkNotFound:
		return http.StatusNotFound
	case LoginTaken, AlreadyVoted:
		return http.StatusConflict
	case InvalidInput:
		return http.StatusBadRequest
	case DataUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
