// cmd/api/transactions.go
// This file contains the HTTP request handlers for the transaction (order)
// resource. All of these routes sit behind the requireAuth middleware.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aoideee/bookstore-api/internal/data"
	"github.com/aoideee/bookstore-api/internal/validator"
	"github.com/julienschmidt/httprouter"
)

// createTransactionHandler handles POST /transactions.
// The request names a user and a non-empty list of {book_id, quantity} items.
// Shape validation happens here with item-indexed messages; everything that
// needs catalog state (user existence, book existence, stock availability)
// happens inside the order store's transaction, which either commits the
// complete order or leaves nothing behind.
func (app *applicationDependencies) createTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID *int64                `json:"user_id"`
		Items  []data.OrderItemInput `json:"items"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.UserID != nil, "user_id", "must be provided")
	v.Check(len(input.Items) > 0, "items", "must contain at least one item")
	for i, item := range input.Items {
		v.Check(item.BookID > 0, fmt.Sprintf("items[%d].book_id", i), "must be provided")
		v.Check(item.Quantity > 0, fmt.Sprintf("items[%d].quantity", i), "must be greater than zero")
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	receipt, err := app.models.Orders.Create(*input.UserID, input.Items)
	if err != nil {
		var notFound *data.BookNotFoundError
		var noStock *data.InsufficientStockError
		switch {
		case errors.Is(err, data.ErrUserNotFound):
			app.errorResponse(w, r, http.StatusNotFound, err.Error())
		case errors.As(err, &notFound):
			app.errorResponse(w, r, http.StatusNotFound, err.Error())
		case errors.As(err, &noStock):
			app.badRequestResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.logger.Info("transaction created",
		slog.Int64("transaction_id", receipt.ID),
		slog.Int64("user_id", receipt.User.ID),
		slog.String("placed_by", app.contextGetUser(r).Username),
	)

	payload := envelope{"success": true, "message": "transaction created", "data": receipt}
	err = app.writeJSON(w, http.StatusCreated, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listTransactionsHandler handles GET /transactions.
// Orders come back newest first, each with a user summary and a flattened
// item list.
func (app *applicationDependencies) listTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := app.models.Orders.GetAll()
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	payload := envelope{
		"success": true,
		"message": "transactions retrieved",
		"count":   len(orders),
		"data":    orders,
	}
	err = app.writeJSON(w, http.StatusOK, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showTransactionHandler handles GET /transactions/:transaction_id.
// httprouter cannot register a static /transactions/statistics route beside
// the wildcard, so the literal "statistics" is dispatched here.
func (app *applicationDependencies) showTransactionHandler(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	if params.ByName("transaction_id") == "statistics" {
		app.transactionStatisticsHandler(w, r)
		return
	}

	id, err := app.readIDParam(r, "transaction_id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	receipt, err := app.models.Orders.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	payload := envelope{"success": true, "message": "transaction retrieved", "data": receipt}
	err = app.writeJSON(w, http.StatusOK, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// transactionStatisticsHandler handles GET /transactions/statistics.
// On an empty orders table the averages are zero and the genre fields null.
func (app *applicationDependencies) transactionStatisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := app.models.Orders.Statistics()
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	payload := envelope{"success": true, "message": "statistics retrieved", "data": stats}
	err = app.writeJSON(w, http.StatusOK, payload, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
