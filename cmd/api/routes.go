// cmd/api/routes.go
package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes registers all HTTP endpoints and returns the configured router wrapped
// in the application middleware.
//
// Middleware chain (outermost → innermost):
//
//	recoverPanic → requestID → rateLimit → router
//
// Current endpoints:
//
//	GET    /healthcheck                     – liveness, environment, version
//	POST   /genre                           – create a genre
//	GET    /genre                           – list genres with book counts
//	GET    /genre/:genre_id                 – genre detail with its books
//	PATCH  /genre/:genre_id                 – rename a genre
//	DELETE /genre/:genre_id                 – soft-delete a genre (in-use guard)
//	POST   /books                           – create a book
//	GET    /books?title=&page=&limit=       – paginated book listing
//	GET    /books/:book_id                  – book detail with genre
//	PATCH  /books/:book_id                  – partial book update
//	DELETE /books/:book_id                  – soft-delete a book
//	POST   /transactions                    – place an order (auth)
//	GET    /transactions                    – list orders, newest first (auth)
//	GET    /transactions/statistics         – aggregate report (auth)
//	GET    /transactions/:transaction_id    – order detail (auth)
func (app *applicationDependencies) routes() http.Handler {
	router := httprouter.New()

	// Override the default httprouter error handlers to return JSON responses.
	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/healthcheck", app.healthcheckHandler)

	// Genre CRUD routes
	router.HandlerFunc(http.MethodPost, "/genre", app.createGenreHandler)
	router.HandlerFunc(http.MethodGet, "/genre", app.listGenresHandler)
	router.HandlerFunc(http.MethodGet, "/genre/:genre_id", app.showGenreHandler)
	router.HandlerFunc(http.MethodPatch, "/genre/:genre_id", app.updateGenreHandler)
	router.HandlerFunc(http.MethodDelete, "/genre/:genre_id", app.deleteGenreHandler)

	// Book CRUD routes
	router.HandlerFunc(http.MethodPost, "/books", app.createBookHandler)
	router.HandlerFunc(http.MethodGet, "/books", app.listBooksHandler)
	router.HandlerFunc(http.MethodGet, "/books/:book_id", app.showBookHandler)
	router.HandlerFunc(http.MethodPatch, "/books/:book_id", app.updateBookHandler)
	router.HandlerFunc(http.MethodDelete, "/books/:book_id", app.deleteBookHandler)

	// Transaction routes, all gated behind bearer-token auth.
	// httprouter cannot register the static /transactions/statistics path next
	// to the :transaction_id wildcard, so showTransactionHandler dispatches to
	// the statistics handler when the parameter is the literal "statistics".
	router.HandlerFunc(http.MethodPost, "/transactions", app.requireAuth(app.createTransactionHandler))
	router.HandlerFunc(http.MethodGet, "/transactions", app.requireAuth(app.listTransactionsHandler))
	router.HandlerFunc(http.MethodGet, "/transactions/:transaction_id", app.requireAuth(app.showTransactionHandler))

	// Wrap with middleware: recoverPanic is outermost so it catches panics
	// from the other middleware and router alike.
	return app.recoverPanic(app.requestID(app.rateLimit(router)))
}
