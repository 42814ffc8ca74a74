// Package data provides the data models and database interaction logic
// for the bookstore catalog and order-processing API.
package data

import (
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Book represents a single book record stored in the database.
// It maps directly to a row in the "books" table. Genre is populated on reads
// that join against the genres table and omitted otherwise.
type Book struct {
	ID              int64           `json:"book_id"`
	Title           string          `json:"title"`
	Writer          string          `json:"writer"`
	Publisher       string          `json:"publisher"`
	PublicationYear *int            `json:"publication_year,omitempty"`
	Description     *string         `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	StockQuantity   int             `json:"stock_quantity"`
	GenreID         int64           `json:"genre_id"`
	Genre           *Genre          `json:"genre,omitempty"`
	CreatedAt       time.Time       `json:"created_at,omitzero"`
	UpdatedAt       time.Time       `json:"updated_at,omitzero"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
}

// BookModel wraps a *sql.DB connection and provides methods for
// creating, reading, updating, and soft-deleting book records.
type BookModel struct {
	DB *sql.DB // Shared database connection pool
}

// Insert adds a new book record to the database.
// After a successful insert, the database-assigned book_id, created_at, and
// updated_at values are written back into the book struct. A title collision
// with another non-deleted book is reported as ErrDuplicateTitle.
func (m BookModel) Insert(book *Book) error {
	query := `
		INSERT INTO books (title, writer, publisher, publication_year, description, price, stock_quantity, genre_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING book_id, created_at, updated_at`

	err := m.DB.QueryRow(
		query,
		book.Title,
		book.Writer,
		book.Publisher,
		book.PublicationYear,
		book.Description,
		book.Price,
		book.StockQuantity,
		book.GenreID,
	).Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTitle
		}
		return err
	}
	return nil
}

// GetAll retrieves a page of non-deleted books ordered by creation time
// descending, each with its genre embedded. A non-empty title filters by
// case-insensitive substring match. It uses a COUNT(*) OVER() window function
// so only one round-trip is needed. Returns the book slice and pagination
// Metadata.
func (m BookModel) GetAll(title string, filters Filters) ([]*Book, Metadata, error) {
	query := `
		SELECT count(*) OVER(), b.book_id, b.title, b.writer, b.publisher, b.publication_year, b.description,
		       b.price, b.stock_quantity, b.genre_id, g.name, b.created_at, b.updated_at
		FROM books b
		INNER JOIN genres g ON g.genre_id = b.genre_id
		WHERE b.deleted_at IS NULL
		AND (b.title ILIKE '%' || $1 || '%' OR $1 = '')
		ORDER BY b.created_at DESC, b.book_id DESC
		LIMIT $2 OFFSET $3`

	rows, err := m.DB.Query(query, title, filters.limit(), filters.offset())
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	books := []*Book{}

	for rows.Next() {
		var book Book
		var genreName string
		err := rows.Scan(
			&totalRecords, // COUNT(*) OVER() – same value on every row
			&book.ID,
			&book.Title,
			&book.Writer,
			&book.Publisher,
			&book.PublicationYear,
			&book.Description,
			&book.Price,
			&book.StockQuantity,
			&book.GenreID,
			&genreName,
			&book.CreatedAt,
			&book.UpdatedAt,
		)
		if err != nil {
			return nil, Metadata{}, err
		}
		book.Genre = &Genre{ID: book.GenreID, Name: genreName}
		books = append(books, &book)
	}
	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	metadata := calculateMetadata(totalRecords, filters.Page, filters.PageSize)
	return books, metadata, nil
}

// Get retrieves a single non-deleted book by id with its genre embedded.
// Returns ErrRecordNotFound if the book is missing or tombstoned.
func (m BookModel) Get(id int64) (*Book, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT b.book_id, b.title, b.writer, b.publisher, b.publication_year, b.description,
		       b.price, b.stock_quantity, b.genre_id, g.name, b.created_at, b.updated_at
		FROM books b
		INNER JOIN genres g ON g.genre_id = b.genre_id
		WHERE b.book_id = $1 AND b.deleted_at IS NULL`

	var book Book
	var genreName string
	err := m.DB.QueryRow(query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Writer,
		&book.Publisher,
		&book.PublicationYear,
		&book.Description,
		&book.Price,
		&book.StockQuantity,
		&book.GenreID,
		&genreName,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	book.Genre = &Genre{ID: book.GenreID, Name: genreName}
	return &book, nil
}

// Update saves the modified fields of book back to the database. The WHERE
// clause skips tombstoned rows; a book deleted between the handler's fetch and
// this call comes back as ErrRecordNotFound. Title collisions surface as
// ErrDuplicateTitle.
func (m BookModel) Update(book *Book) error {
	query := `
		UPDATE books
		SET title = $1, writer = $2, publisher = $3, publication_year = $4,
		    description = $5, price = $6, stock_quantity = $7, genre_id = $8, updated_at = now()
		WHERE book_id = $9 AND deleted_at IS NULL
		RETURNING updated_at`

	args := []any{
		book.Title,
		book.Writer,
		book.Publisher,
		book.PublicationYear,
		book.Description,
		book.Price,
		book.StockQuantity,
		book.GenreID,
		book.ID,
	}

	err := m.DB.QueryRow(query, args...).Scan(&book.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		case isUniqueViolation(err):
			return ErrDuplicateTitle
		default:
			return err
		}
	}
	return nil
}

// SoftDelete tombstones the book with the given id and returns a summary of the
// deleted record including its denormalized genre name. Returns
// ErrRecordNotFound if the book is missing or already tombstoned.
func (m BookModel) SoftDelete(id int64) (*Book, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		UPDATE books b
		SET deleted_at = now(), updated_at = now()
		FROM genres g
		WHERE b.book_id = $1 AND b.deleted_at IS NULL AND g.genre_id = b.genre_id
		RETURNING b.book_id, b.title, b.writer, b.publisher, b.price, b.stock_quantity, b.genre_id, g.name, b.deleted_at`

	var book Book
	var genreName string
	err := m.DB.QueryRow(query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Writer,
		&book.Publisher,
		&book.Price,
		&book.StockQuantity,
		&book.GenreID,
		&genreName,
		&book.DeletedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	book.Genre = &Genre{ID: book.GenreID, Name: genreName}
	return &book, nil
}
