package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Kind classifies an error so the request boundary can pick a status code.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindPersistence
)

// Error carries a kind, a message safe to return to the client, and the
// underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Persistence(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: message, Err: err}
}

// unique_violation
const pgUniqueViolation = "23505"

// FromStorage classifies an error returned by a repository: no rows becomes
// not-found, a unique violation becomes a conflict, anything else a
// persistence failure with the given fallback message.
func FromStorage(err error, notFoundMsg, conflictMsg, fallbackMsg string) *Error {
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(notFoundMsg)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return Conflict(conflictMsg)
	}
	return Persistence(fallbackMsg, err)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// IsNotFound reports whether err is a not-found error of either flavor.
func IsNotFound(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == KindNotFound
}

func (k Kind) status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Status returns the HTTP status code for err.
func Status(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind.status()
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

// HTTPErrorHandler converts errors into {"error": message} JSON bodies.
// Unclassified errors get a generic localized message so internals never
// leak to the client.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "เกิดข้อผิดพลาดในระบบ"

		var appErr *Error
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			status = appErr.Kind.status()
			message = appErr.Message
			if appErr.Kind == KindPersistence {
				logger.Error().Err(appErr.Err).Str("path", c.Path()).Msg("storage failure")
			}
		case errors.As(err, &httpErr):
			status = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				message = msg
			}
		default:
			logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		}

		if jsonErr := c.JSON(status, map[string]string{"error": message}); jsonErr != nil {
			logger.Error().Err(jsonErr).Msg("write error response")
		}
	}
}
