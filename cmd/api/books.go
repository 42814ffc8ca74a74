// cmd/api/books.go
// This file contains all HTTP request handlers for the books resource.
package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aoideee/bookstore-api/internal/data"
	"github.com/aoideee/bookstore-api/internal/validator"
	"github.com/shopspring/decimal"
)

// createBookHandler handles POST /books.
// Title, writer, publisher, price, stock_quantity, and genre_id are required;
// the referenced genre must exist and be non-deleted; the title must be unique
// among non-deleted books. Numeric fields arrive typed, so non-numeric input
// fails the JSON decode with a 400 before any validation runs.
func (app *applicationDependencies) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title           string           `json:"title"`
		Writer          string           `json:"writer"`
		Publisher       string           `json:"publisher"`
		PublicationYear *int             `json:"publication_year"`
		Description     *string          `json:"description"`
		Price           *decimal.Decimal `json:"price"`
		StockQuantity   *int             `json:"stock_quantity"`
		GenreID         *int64           `json:"genre_id"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Writer = strings.TrimSpace(input.Writer)
	input.Publisher = strings.TrimSpace(input.Publisher)

	v := validator.New()
	v.Check(input.Title != "", "title", "must be provided")
	v.Check(input.Writer != "", "writer", "must be provided")
	v.Check(input.Publisher != "", "publisher", "must be provided")
	v.Check(input.Price != nil, "price", "must be provided")
	if input.Price != nil {
		v.Check(!input.Price.IsNegative(), "price", "must not be negative")
	}
	v.Check(input.StockQuantity != nil, "stock_quantity", "must be provided")
	if input.StockQuantity != nil {
		v.Check(*input.StockQuantity >= 0, "stock_quantity", "must not be negative")
	}
	v.Check(input.GenreID != nil, "genre_id", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	// The referenced genre must exist and be non-deleted.
	genre, err := app.models.Genres.Get(*input.GenreID)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "the referenced genre does not exist")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	book := &data.Book{
		Title:           input.Title,
		Writer:          input.Writer,
		Publisher:       input.Publisher,
		PublicationYear: input.PublicationYear,
		Description:     input.Description,
		Price:           *input.Price,
		StockQuantity:   *input.StockQuantity,
		GenreID:         genre.ID,
	}

	err = app.models.Books.Insert(book)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateTitle):
			app.conflictResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	book.Genre = &data.Genre{ID: genre.ID, Name: genre.Name}

	payload := envelope{"success": true, "message": "book created", "data": book}
	err = app.writeJSON(w, http.StatusCreated, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listBooksHandler handles GET /books?title=&page=&limit=.
// It returns a page of non-deleted books newest first, each with its genre
// embedded, plus the total count and pagination metadata. A non-empty title
// filters by case-insensitive substring.
func (app *applicationDependencies) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	title := app.readString(qs, "title", "")
	filters := data.Filters{
		Page:     app.readInt(qs, "page", 1),
		PageSize: app.readInt(qs, "limit", 20),
	}

	v := validator.New()
	v.Check(validator.Between(filters.Page, 1, 10_000_000), "page", "must be between 1 and 10,000,000")
	v.Check(validator.Between(filters.PageSize, 1, 100), "limit", "must be between 1 and 100")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	books, metadata, err := app.models.Books.GetAll(title, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	payload := envelope{
		"success":    true,
		"message":    "books retrieved",
		"count":      len(books),
		"pagination": metadata,
		"data":       books,
	}
	err = app.writeJSON(w, http.StatusOK, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBookHandler handles GET /books/:book_id.
func (app *applicationDependencies) showBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "book_id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	book, err := app.models.Books.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	payload := envelope{"success": true, "message": "book retrieved", "data": book}
	err = app.writeJSON(w, http.StatusOK, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBookHandler handles PATCH /books/:book_id.
// It reads a partial JSON body, finds the existing book, applies only the
// non-nil fields (trimming strings), and saves the changes. An empty title
// after trimming, a negative price, or a negative stock_quantity is a 400;
// a supplied genre_id must reference a live genre.
func (app *applicationDependencies) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "book_id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	book, err := app.models.Books.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	var input struct {
		Title           *string          `json:"title"`
		Writer          *string          `json:"writer"`
		Publisher       *string          `json:"publisher"`
		PublicationYear *int             `json:"publication_year"`
		Description     *string          `json:"description"`
		Price           *decimal.Decimal `json:"price"`
		StockQuantity   *int             `json:"stock_quantity"`
		GenreID         *int64           `json:"genre_id"`
	}
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if input.Title != nil {
		*input.Title = strings.TrimSpace(*input.Title)
		v.Check(*input.Title != "", "title", "must not be empty")
	}
	if input.Writer != nil {
		*input.Writer = strings.TrimSpace(*input.Writer)
		v.Check(*input.Writer != "", "writer", "must not be empty")
	}
	if input.Publisher != nil {
		*input.Publisher = strings.TrimSpace(*input.Publisher)
		v.Check(*input.Publisher != "", "publisher", "must not be empty")
	}
	if input.Price != nil {
		v.Check(!input.Price.IsNegative(), "price", "must not be negative")
	}
	if input.StockQuantity != nil {
		v.Check(*input.StockQuantity >= 0, "stock_quantity", "must not be negative")
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	// Apply only the fields that were actually provided in the request body.
	// Each field is a pointer; nil means "not provided, leave as-is".
	if input.Title != nil {
		book.Title = *input.Title
	}
	if input.Writer != nil {
		book.Writer = *input.Writer
	}
	if input.Publisher != nil {
		book.Publisher = *input.Publisher
	}
	if input.PublicationYear != nil {
		book.PublicationYear = input.PublicationYear
	}
	if input.Description != nil {
		book.Description = input.Description
	}
	if input.Price != nil {
		book.Price = *input.Price
	}
	if input.StockQuantity != nil {
		book.StockQuantity = *input.StockQuantity
	}
	if input.GenreID != nil {
		genre, err := app.models.Genres.Get(*input.GenreID)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.errorResponse(w, r, http.StatusNotFound, "the referenced genre does not exist")
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}
		book.GenreID = genre.ID
		book.Genre = &data.Genre{ID: genre.ID, Name: genre.Name}
	}

	err = app.models.Books.Update(book)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrDuplicateTitle):
			app.conflictResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	payload := envelope{"success": true, "message": "book updated", "data": book}
	err = app.writeJSON(w, http.StatusOK, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteBookHandler handles DELETE /books/:book_id.
// The book is tombstoned, never physically removed, and the response includes
// a summary with the denormalized genre name.
func (app *applicationDependencies) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "book_id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	book, err := app.models.Books.SoftDelete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	payload := envelope{"success": true, "message": "book deleted", "data": book}
	err = app.writeJSON(w, http.StatusOK, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
