// cmd/api/errors.go
// This file contains all error-response helpers for the application.
// Keeping error helpers in a dedicated file makes them easy to find and extend.
package main

import (
	"log/slog"
	"net/http"

	"github.com/aoideee/bookstore-api/internal/data"
)

// logError logs an internal error at ERROR level with the request method, URL,
// and request id for context.
func (app *applicationDependencies) logError(r *http.Request, err error) {
	app.logger.Error(err.Error(),
		slog.String("request_method", r.Method),
		slog.String("request_url", r.URL.String()),
		slog.String("request_id", requestIDFromContext(r.Context())),
	)
}

// errorResponse sends a JSON error envelope with the given status code.
// It is the low-level building block used by all the specific error helpers
// below. A string message fills both "message" and "error"; any other value
// (e.g. a field-error map) goes under "error" with a generic "message".
func (app *applicationDependencies) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	data := envelope{"success": false, "error": message}
	if s, ok := message.(string); ok {
		data["message"] = s
	} else {
		data["message"] = "invalid input"
	}

	err := app.writeJSON(w, status, data, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// serverErrorResponse logs a 500-level error and echoes the underlying message
// to the caller alongside a generic headline.
func (app *applicationDependencies) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	data := envelope{
		"success": false,
		"message": "the server encountered a problem and could not process your request",
		"error":   err.Error(),
	}
	if writeErr := app.writeJSON(w, http.StatusInternalServerError, data, nil); writeErr != nil {
		app.logError(r, writeErr)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// notFoundResponse sends a generic 404 Not Found error.
func (app *applicationDependencies) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

// methodNotAllowedResponse sends a 405 Method Not Allowed error.
func (app *applicationDependencies) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := "the " + r.Method + " method is not supported for this resource"
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

// badRequestResponse sends a 400 Bad Request error with the error message from the caller.
func (app *applicationDependencies) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

// failedValidationResponse sends a 400 Bad Request response containing the
// field-level validation errors collected by a Validator.
func (app *applicationDependencies) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.errorResponse(w, r, http.StatusBadRequest, errors)
}

// conflictResponse sends a 409 Conflict error for uniqueness violations.
func (app *applicationDependencies) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusConflict, err.Error())
}

// genreInUseResponse sends a 400 error for a refused genre deletion, listing
// every non-deleted book that still references the genre.
func (app *applicationDependencies) genreInUseResponse(w http.ResponseWriter, r *http.Request, e *data.GenreInUseError) {
	payload := envelope{
		"success": false,
		"message": e.Error(),
		"error":   e.Error(),
		"books":   e.Books,
	}
	if err := app.writeJSON(w, http.StatusBadRequest, payload, nil); err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// invalidAuthenticationTokenResponse sends a 401 Unauthorized error and tells
// the client which authentication scheme is expected.
func (app *applicationDependencies) invalidAuthenticationTokenResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.errorResponse(w, r, http.StatusUnauthorized, "invalid or missing authentication token")
}

// rateLimitExceededResponse sends a 429 Too Many Requests error.
func (app *applicationDependencies) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}
