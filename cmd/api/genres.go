// cmd/api/genres.go
// This file contains all HTTP request handlers for the genre resource.
// Each handler is a method on *applicationDependencies so it has access
// to the logger and database stores.
package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aoideee/bookstore-api/internal/data"
	"github.com/aoideee/bookstore-api/internal/validator"
)

// createGenreHandler handles POST /genre.
// The name is trimmed before validation and before the uniqueness check, so
// " Fiction " and "Fiction" are the same genre.
func (app *applicationDependencies) createGenreHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	input.Name = strings.TrimSpace(input.Name)

	v := validator.New()
	v.Check(input.Name != "", "name", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	genre := &data.Genre{Name: input.Name}

	err = app.models.Genres.Insert(genre)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateGenre):
			app.conflictResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	payload := envelope{"success": true, "message": "genre created", "data": genre}
	err = app.writeJSON(w, http.StatusCreated, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listGenresHandler handles GET /genre.
// It returns every non-deleted genre ordered by name, each with its count of
// non-deleted books.
func (app *applicationDependencies) listGenresHandler(w http.ResponseWriter, r *http.Request) {
	genres, err := app.models.Genres.GetAll()
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	payload := envelope{
		"success": true,
		"message": "genres retrieved",
		"count":   len(genres),
		"data":    genres,
	}
	err = app.writeJSON(w, http.StatusOK, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showGenreHandler handles GET /genre/:genre_id.
// The response embeds the genre's non-deleted books and their count.
func (app *applicationDependencies) showGenreHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "genre_id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	genre, err := app.models.Genres.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	payload := envelope{"success": true, "message": "genre retrieved", "data": genre}
	err = app.writeJSON(w, http.StatusOK, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateGenreHandler handles PATCH /genre/:genre_id.
// Only the name can change; the new name is trimmed and must not collide with
// another non-deleted genre.
func (app *applicationDependencies) updateGenreHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "genre_id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input struct {
		Name *string `json:"name"`
	}
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.Name != nil, "name", "must be provided")
	if input.Name != nil {
		*input.Name = strings.TrimSpace(*input.Name)
		v.Check(*input.Name != "", "name", "must not be empty")
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	// Fetch first so the response can include the genre's books and count.
	genre, err := app.models.Genres.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	genre.Name = *input.Name

	err = app.models.Genres.Update(genre)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrDuplicateGenre):
			app.conflictResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	payload := envelope{"success": true, "message": "genre updated", "data": genre}
	err = app.writeJSON(w, http.StatusOK, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteGenreHandler handles DELETE /genre/:genre_id.
// A genre still referenced by non-deleted books cannot be deleted; the 400
// response lists every blocking book.
func (app *applicationDependencies) deleteGenreHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "genre_id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	genre, err := app.models.Genres.SoftDelete(id)
	if err != nil {
		var inUse *data.GenreInUseError
		switch {
		case errors.As(err, &inUse):
			app.genreInUseResponse(w, r, inUse)
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	payload := envelope{"success": true, "message": "genre deleted", "data": genre}
	err = app.writeJSON(w, http.StatusOK, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
