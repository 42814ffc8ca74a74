// internal/data/models.go
package data

import (
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Models is a top-level container that groups all database store types together.
// It is passed around the application via applicationDependencies so every handler
// has access to the database without importing sql directly. Each field is an
// interface so tests can substitute an in-memory fake for the real SQL store.
type Models struct {
	Genres GenreStore
	Books  BookStore
	Users  UserStore
	Orders OrderStore
}

// NewModels constructs a Models value wired up to the given database connection pool.
// Call this once during application startup and store the result in applicationDependencies.
func NewModels(db *sql.DB) Models {
	return Models{
		Genres: GenreModel{DB: db},
		Books:  BookModel{DB: db},
		Users:  UserModel{DB: db},
		Orders: OrderModel{DB: db},
	}
}

// GenreStore defines the database operations for the genres table.
type GenreStore interface {
	Insert(genre *Genre) error
	GetAll() ([]*Genre, error)
	Get(id int64) (*Genre, error)
	Update(genre *Genre) error
	SoftDelete(id int64) (*Genre, error)
}

// BookStore defines the database operations for the books table.
type BookStore interface {
	Insert(book *Book) error
	GetAll(title string, filters Filters) ([]*Book, Metadata, error)
	Get(id int64) (*Book, error)
	Update(book *Book) error
	SoftDelete(id int64) (*Book, error)
}

// UserStore defines lookups against the users and tokens tables.
type UserStore interface {
	Get(id int64) (*User, error)
	GetForToken(tokenPlaintext string) (*User, error)
}

// OrderStore defines the order-processing operations.
type OrderStore interface {
	Create(userID int64, items []OrderItemInput) (*OrderReceipt, error)
	GetAll() ([]*OrderSummary, error)
	Get(id int64) (*OrderReceipt, error)
	Statistics() (*OrderStatistics, error)
}

// ErrRecordNotFound is returned when a query finds no matching (non-deleted) row.
var ErrRecordNotFound = errors.New("record not found")

// ErrDuplicateGenre is returned when an insert or rename collides with another
// non-deleted genre's name.
var ErrDuplicateGenre = errors.New("a genre with that name already exists")

// ErrDuplicateTitle is returned when an insert or update collides with another
// non-deleted book's title.
var ErrDuplicateTitle = errors.New("a book with that title already exists")

// ErrUserNotFound is returned when an order names a user that does not exist.
var ErrUserNotFound = errors.New("user not found")

// BookRef identifies a book in error payloads, e.g. the list of books blocking
// a genre deletion.
type BookRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// GenreInUseError is returned when a genre cannot be deleted because
// non-deleted books still reference it. Books lists every blocking book.
type GenreInUseError struct {
	Books []BookRef
}

func (e *GenreInUseError) Error() string {
	return fmt.Sprintf("genre is in use by %d book(s) and cannot be deleted", len(e.Books))
}

// BookNotFoundError is returned when an order item names a book that is missing
// or soft-deleted.
type BookNotFoundError struct {
	ID int64
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("book with id %d does not exist", e.ID)
}

// InsufficientStockError is returned when a requested quantity exceeds a book's
// current stock. The message names the title and both counts so the client can
// show exactly what went wrong.
type InsufficientStockError struct {
	Title     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: %d available, %d requested", e.Title, e.Available, e.Requested)
}

// Filters holds pagination parameters extracted from URL query strings.
type Filters struct {
	Page     int // Current page number (1-indexed)
	PageSize int // Number of records per page
}

// limit returns the SQL LIMIT value derived from PageSize.
func (f Filters) limit() int { return f.PageSize }

// offset returns the SQL OFFSET value derived from Page and PageSize.
func (f Filters) offset() int { return (f.Page - 1) * f.PageSize }

// Metadata contains pagination information returned alongside list responses.
type Metadata struct {
	CurrentPage  int `json:"current_page,omitempty"`
	PageSize     int `json:"page_size,omitempty"`
	FirstPage    int `json:"first_page,omitempty"`
	LastPage     int `json:"last_page,omitempty"`
	TotalRecords int `json:"total_records,omitempty"`
}

// calculateMetadata computes page metadata from total record count and filter values.
func calculateMetadata(totalRecords, page, pageSize int) Metadata {
	if totalRecords == 0 {
		return Metadata{}
	}
	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     int(math.Ceil(float64(totalRecords) / float64(pageSize))),
		TotalRecords: totalRecords,
	}
}

// zeroDecimal is the shared zero value used when shaping money fields.
var zeroDecimal = decimal.NewFromInt(0)
