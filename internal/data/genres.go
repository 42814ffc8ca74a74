// internal/data/genres.go
package data

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

// Genre represents a single genre record stored in the database.
// BookCount and Books are populated on reads that join against the books table;
// both are left empty when the genre is embedded inside a book response.
type Genre struct {
	ID        int64      `json:"genre_id"`
	Name      string     `json:"name"`
	BookCount *int       `json:"book_count,omitempty"`
	Books     []*Book    `json:"books,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitzero"`
	UpdatedAt time.Time  `json:"updated_at,omitzero"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// GenreModel wraps a *sql.DB connection and provides methods for
// creating, reading, updating, and soft-deleting genre records.
type GenreModel struct {
	DB *sql.DB // Shared database connection pool
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation (23505),
// raised when an insert or update collides with one of the partial unique indexes.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Insert adds a new genre record to the database. The name must already be
// trimmed by the caller. A collision with another non-deleted genre's name is
// reported as ErrDuplicateGenre; the partial unique index does the check, so
// there is no racy read-then-insert window.
func (m GenreModel) Insert(genre *Genre) error {
	query := `
		INSERT INTO genres (name)
		VALUES ($1)
		RETURNING genre_id, created_at, updated_at`

	err := m.DB.QueryRow(query, genre.Name).Scan(&genre.ID, &genre.CreatedAt, &genre.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateGenre
		}
		return err
	}
	return nil
}

// GetAll retrieves every non-deleted genre ordered by name ascending, each
// annotated with a count of its non-deleted books.
func (m GenreModel) GetAll() ([]*Genre, error) {
	query := `
		SELECT g.genre_id, g.name, g.created_at, g.updated_at, COUNT(b.book_id)
		FROM genres g
		LEFT JOIN books b ON b.genre_id = g.genre_id AND b.deleted_at IS NULL
		WHERE g.deleted_at IS NULL
		GROUP BY g.genre_id
		ORDER BY g.name ASC`

	rows, err := m.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	genres := []*Genre{}
	for rows.Next() {
		var genre Genre
		var count int
		err := rows.Scan(&genre.ID, &genre.Name, &genre.CreatedAt, &genre.UpdatedAt, &count)
		if err != nil {
			return nil, err
		}
		genre.BookCount = &count
		genres = append(genres, &genre)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return genres, nil
}

// Get retrieves a single non-deleted genre by id together with its non-deleted
// books. Returns ErrRecordNotFound if the genre is missing or tombstoned.
func (m GenreModel) Get(id int64) (*Genre, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT genre_id, name, created_at, updated_at
		FROM genres
		WHERE genre_id = $1 AND deleted_at IS NULL`

	var genre Genre
	err := m.DB.QueryRow(query, id).Scan(&genre.ID, &genre.Name, &genre.CreatedAt, &genre.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	booksQuery := `
		SELECT book_id, title, writer, publisher, publication_year, description, price, stock_quantity, genre_id, created_at, updated_at
		FROM books
		WHERE genre_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, book_id DESC`

	rows, err := m.DB.Query(booksQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	genre.Books = []*Book{}
	for rows.Next() {
		var book Book
		err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Writer,
			&book.Publisher,
			&book.PublicationYear,
			&book.Description,
			&book.Price,
			&book.StockQuantity,
			&book.GenreID,
			&book.CreatedAt,
			&book.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		genre.Books = append(genre.Books, &book)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	count := len(genre.Books)
	genre.BookCount = &count
	return &genre, nil
}

// Update renames the genre. The WHERE clause skips tombstoned rows, so a genre
// deleted between the handler's existence check and this call still comes back
// as ErrRecordNotFound. Name collisions surface as ErrDuplicateGenre.
func (m GenreModel) Update(genre *Genre) error {
	query := `
		UPDATE genres
		SET name = $1, updated_at = now()
		WHERE genre_id = $2 AND deleted_at IS NULL
		RETURNING updated_at`

	err := m.DB.QueryRow(query, genre.Name, genre.ID).Scan(&genre.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		case isUniqueViolation(err):
			return ErrDuplicateGenre
		default:
			return err
		}
	}
	return nil
}

// SoftDelete tombstones the genre with the given id and returns the tombstoned
// summary. The in-use guard runs first: if any non-deleted book still references
// the genre, the delete is refused with a GenreInUseError listing every blocker.
func (m GenreModel) SoftDelete(id int64) (*Genre, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	blockersQuery := `
		SELECT book_id, title
		FROM books
		WHERE genre_id = $1 AND deleted_at IS NULL
		ORDER BY title ASC`

	rows, err := m.DB.Query(blockersQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blockers []BookRef
	for rows.Next() {
		var ref BookRef
		if err := rows.Scan(&ref.ID, &ref.Title); err != nil {
			return nil, err
		}
		blockers = append(blockers, ref)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(blockers) > 0 {
		return nil, &GenreInUseError{Books: blockers}
	}

	query := `
		UPDATE genres
		SET deleted_at = now(), updated_at = now()
		WHERE genre_id = $1 AND deleted_at IS NULL
		RETURNING genre_id, name, created_at, updated_at, deleted_at`

	var genre Genre
	err = m.DB.QueryRow(query, id).Scan(&genre.ID, &genre.Name, &genre.CreatedAt, &genre.UpdatedAt, &genre.DeletedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &genre, nil
}
