// internal/data/orders.go
//
// Order creation is the one multi-step mutation in this system: it validates
// every line item against current catalog state, creates the order and its
// items, decrements stock, and computes the total. The whole sequence runs
// inside a single SQL transaction so a mid-loop failure leaves no partial
// order, and the stock decrement is conditional (stock_quantity >= quantity in
// the WHERE clause) so two concurrent purchases can never drive stock negative.
package data

import (
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// OrderItemInput is one requested line of a new order.
type OrderItemInput struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

// OrderBook is the book summary embedded in an order line. Publisher is only
// populated on detail reads.
type OrderBook struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Writer    string          `json:"writer"`
	Publisher string          `json:"publisher,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Genre     string          `json:"genre"`
}

// OrderLine is one materialized line item of an order.
type OrderLine struct {
	ID       int64           `json:"id"`
	Book     OrderBook       `json:"book"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// OrderReceipt is the full shape of a single order: the user who placed it,
// the accumulated totals, and every line item.
type OrderReceipt struct {
	ID            int64           `json:"transaction_id"`
	User          User            `json:"user"`
	TotalQuantity int             `json:"total_quantity"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Items         []OrderLine     `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderFlatItem is the flattened line-item shape used by order listings.
type OrderFlatItem struct {
	BookTitle string          `json:"book_title"`
	Genre     string          `json:"genre"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderSummary is one entry of the order listing.
type OrderSummary struct {
	ID         int64           `json:"transaction_id"`
	User       User            `json:"user"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []OrderFlatItem `json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
}

// OrderStatistics is the aggregate report over all orders. The genre fields are
// nil when no line items exist yet.
type OrderStatistics struct {
	TotalTransactions       int             `json:"total_transactions"`
	AverageTransactionValue decimal.Decimal `json:"average_transaction_value"`
	MostPopularGenre        *string         `json:"most_popular_genre"`
	LeastPopularGenre       *string         `json:"least_popular_genre"`
}

// OrderModel wraps a *sql.DB connection and provides the order-processing
// operations. Orders are never soft-deleted, so no read here filters on a
// tombstone of the order itself.
type OrderModel struct {
	DB *sql.DB // Shared database connection pool
}

// Create places a new order for userID covering the given items.
//
// The flow is: actor check, a pre-validation pass over every item (first
// failure wins, nothing persisted yet), order shell insert with a zero total,
// then the materialization loop (re-fetch book, insert line item, conditional
// stock decrement), and finally the total update. Everything runs in one SQL
// transaction; any error rolls the whole order back.
//
// Returns ErrUserNotFound, *BookNotFoundError, or *InsufficientStockError for
// the named failure conditions.
func (m OrderModel) Create(userID int64, items []OrderItemInput) (*OrderReceipt, error) {
	tx, err := m.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	receipt := &OrderReceipt{Items: []OrderLine{}}

	err = tx.QueryRow(
		`SELECT user_id, username, email FROM users WHERE user_id = $1`,
		userID,
	).Scan(&receipt.User.ID, &receipt.User.Username, &receipt.User.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// Pre-validation pass: every item is checked before anything is written.
	for _, item := range items {
		var title string
		var stock int
		err = tx.QueryRow(
			`SELECT title, stock_quantity FROM books WHERE book_id = $1 AND deleted_at IS NULL`,
			item.BookID,
		).Scan(&title, &stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, &BookNotFoundError{ID: item.BookID}
			}
			return nil, err
		}
		if stock < item.Quantity {
			return nil, &InsufficientStockError{Title: title, Available: stock, Requested: item.Quantity}
		}
	}

	err = tx.QueryRow(
		`INSERT INTO orders (user_id, total_price) VALUES ($1, 0) RETURNING order_id, created_at`,
		userID,
	).Scan(&receipt.ID, &receipt.CreatedAt)
	if err != nil {
		return nil, err
	}

	totalPrice := zeroDecimal

	// Materialization loop: one re-fetch per item so each subtotal reflects the
	// book as seen inside this transaction.
	for _, item := range items {
		var line OrderLine
		err = tx.QueryRow(
			`SELECT b.book_id, b.title, b.writer, b.price, g.name
			 FROM books b
			 INNER JOIN genres g ON g.genre_id = b.genre_id
			 WHERE b.book_id = $1 AND b.deleted_at IS NULL`,
			item.BookID,
		).Scan(&line.Book.ID, &line.Book.Title, &line.Book.Writer, &line.Book.Price, &line.Book.Genre)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, &BookNotFoundError{ID: item.BookID}
			}
			return nil, err
		}

		line.Quantity = item.Quantity
		line.Subtotal = line.Book.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))

		err = tx.QueryRow(
			`INSERT INTO order_items (order_id, book_id, quantity) VALUES ($1, $2, $3) RETURNING order_item_id`,
			receipt.ID, item.BookID, item.Quantity,
		).Scan(&line.ID)
		if err != nil {
			return nil, err
		}

		// Conditional decrement: zero rows affected means a concurrent order
		// drained the stock since the pre-validation pass.
		result, err := tx.Exec(
			`UPDATE books
			 SET stock_quantity = stock_quantity - $1, updated_at = now()
			 WHERE book_id = $2 AND deleted_at IS NULL AND stock_quantity >= $1`,
			item.Quantity, item.BookID,
		)
		if err != nil {
			return nil, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			var available int
			if err := tx.QueryRow(
				`SELECT stock_quantity FROM books WHERE book_id = $1`,
				item.BookID,
			).Scan(&available); err != nil {
				available = 0
			}
			return nil, &InsufficientStockError{Title: line.Book.Title, Available: available, Requested: item.Quantity}
		}

		receipt.TotalQuantity += item.Quantity
		totalPrice = totalPrice.Add(line.Subtotal)
		receipt.Items = append(receipt.Items, line)
	}

	receipt.TotalPrice = totalPrice
	_, err = tx.Exec(
		`UPDATE orders SET total_price = $1, updated_at = now() WHERE order_id = $2`,
		receipt.TotalPrice, receipt.ID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return receipt, nil
}

// GetAll retrieves every order newest first, each with its user summary and a
// flattened item list. Items read through the live book record, so titles and
// prices reflect the catalog as it is now, not as it was at purchase time.
func (m OrderModel) GetAll() ([]*OrderSummary, error) {
	query := `
		SELECT o.order_id, o.total_price, o.created_at, u.user_id, u.username, u.email
		FROM orders o
		INNER JOIN users u ON u.user_id = o.user_id
		ORDER BY o.created_at DESC, o.order_id DESC`

	rows, err := m.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*OrderSummary{}
	byID := make(map[int64]*OrderSummary)
	for rows.Next() {
		var order OrderSummary
		err := rows.Scan(&order.ID, &order.TotalPrice, &order.CreatedAt, &order.User.ID, &order.User.Username, &order.User.Email)
		if err != nil {
			return nil, err
		}
		order.Items = []OrderFlatItem{}
		orders = append(orders, &order)
		byID[order.ID] = &order
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	itemsQuery := `
		SELECT oi.order_id, b.title, g.name, oi.quantity, b.price
		FROM order_items oi
		INNER JOIN books b ON b.book_id = oi.book_id
		INNER JOIN genres g ON g.genre_id = b.genre_id
		ORDER BY oi.order_item_id ASC`

	itemRows, err := m.DB.Query(itemsQuery)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var orderID int64
		var item OrderFlatItem
		err := itemRows.Scan(&orderID, &item.BookTitle, &item.Genre, &item.Quantity, &item.Price)
		if err != nil {
			return nil, err
		}
		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err = itemRows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// Get retrieves a single order with full line-item detail, including each
// book's publisher and the per-line subtotal. Returns ErrRecordNotFound if no
// order with that id exists.
func (m OrderModel) Get(id int64) (*OrderReceipt, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT o.order_id, o.total_price, o.created_at, u.user_id, u.username, u.email
		FROM orders o
		INNER JOIN users u ON u.user_id = o.user_id
		WHERE o.order_id = $1`

	receipt := &OrderReceipt{Items: []OrderLine{}}
	err := m.DB.QueryRow(query, id).Scan(
		&receipt.ID,
		&receipt.TotalPrice,
		&receipt.CreatedAt,
		&receipt.User.ID,
		&receipt.User.Username,
		&receipt.User.Email,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	itemsQuery := `
		SELECT oi.order_item_id, b.book_id, b.title, b.writer, b.publisher, b.price, g.name, oi.quantity
		FROM order_items oi
		INNER JOIN books b ON b.book_id = oi.book_id
		INNER JOIN genres g ON g.genre_id = b.genre_id
		WHERE oi.order_id = $1
		ORDER BY oi.order_item_id ASC`

	rows, err := m.DB.Query(itemsQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line OrderLine
		err := rows.Scan(
			&line.ID,
			&line.Book.ID,
			&line.Book.Title,
			&line.Book.Writer,
			&line.Book.Publisher,
			&line.Book.Price,
			&line.Book.Genre,
			&line.Quantity,
		)
		if err != nil {
			return nil, err
		}
		line.Subtotal = line.Book.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		receipt.TotalQuantity += line.Quantity
		receipt.Items = append(receipt.Items, line)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return receipt, nil
}

// Statistics reports the total order count, the average order total (zero when
// no orders exist), and the most- and least-purchased genres. Popularity is the
// count of order-item rows per genre, restricted to non-deleted books and
// genres; ties are broken alphabetically by genre name.
func (m OrderModel) Statistics() (*OrderStatistics, error) {
	stats := &OrderStatistics{AverageTransactionValue: zeroDecimal}

	query := `SELECT count(*), COALESCE(AVG(total_price), 0) FROM orders`
	err := m.DB.QueryRow(query).Scan(&stats.TotalTransactions, &stats.AverageTransactionValue)
	if err != nil {
		return nil, err
	}

	genreQuery := `
		SELECT g.name, count(*)
		FROM order_items oi
		INNER JOIN books b ON b.book_id = oi.book_id AND b.deleted_at IS NULL
		INNER JOIN genres g ON g.genre_id = b.genre_id AND g.deleted_at IS NULL
		GROUP BY g.name`

	rows, err := m.DB.Query(genreQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type genreCount struct {
		name  string
		count int
	}
	var counts []genreCount
	for rows.Next() {
		var gc genreCount
		if err := rows.Scan(&gc.name, &gc.count); err != nil {
			return nil, err
		}
		counts = append(counts, gc)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(counts) > 0 {
		// Alphabetical tie-break: sort by name first, then pick the extremes by
		// count with a stable scan so equal counts resolve to the first name.
		sort.Slice(counts, func(i, j int) bool { return counts[i].name < counts[j].name })
		most, least := counts[0], counts[0]
		for _, gc := range counts[1:] {
			if gc.count > most.count {
				most = gc
			}
			if gc.count < least.count {
				least = gc
			}
		}
		stats.MostPopularGenre = &most.name
		stats.LeastPopularGenre = &least.name
	}

	return stats, nil
}
