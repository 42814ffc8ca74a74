// cmd/api/testutil_test.go
// In-memory implementations of the data store interfaces plus request helpers.
// The fakes mirror the SQL layer's semantics (soft-delete filtering, uniqueness
// among live rows, stock decrement, popularity tie-breaks) so handler tests can
// exercise complete scenarios without a database.
package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aoideee/bookstore-api/internal/data"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memOrderItem struct {
	id     int64
	bookID int64
	qty    int
}

type memOrder struct {
	id        int64
	userID    int64
	total     decimal.Decimal
	createdAt time.Time
	items     []memOrderItem
}

type memStore struct {
	genres map[int64]*data.Genre
	books  map[int64]*data.Book
	users  map[int64]*data.User
	tokens map[string]int64 // plaintext token -> user id
	orders []*memOrder
	lastID int64
}

func newMemStore() *memStore {
	return &memStore{
		genres: make(map[int64]*data.Genre),
		books:  make(map[int64]*data.Book),
		users:  make(map[int64]*data.User),
		tokens: make(map[string]int64),
	}
}

func (s *memStore) id() int64 {
	s.lastID++
	return s.lastID
}

func (s *memStore) seedUser(username, email, token string) *data.User {
	user := &data.User{ID: s.id(), Username: username, Email: email, CreatedAt: time.Now()}
	s.users[user.ID] = user
	s.tokens[token] = user.ID
	return user
}

func (s *memStore) seedGenre(name string) *data.Genre {
	genre := &data.Genre{ID: s.id(), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.genres[genre.ID] = genre
	return genre
}

func (s *memStore) seedBook(title, writer string, price string, stock int, genreID int64) *data.Book {
	book := &data.Book{
		ID:            s.id(),
		Title:         title,
		Writer:        writer,
		Publisher:     "Test House",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		GenreID:       genreID,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	s.books[book.ID] = book
	return book
}

func (s *memStore) liveBooksForGenre(genreID int64) []*data.Book {
	var books []*data.Book
	for _, b := range s.books {
		if b.DeletedAt == nil && b.GenreID == genreID {
			books = append(books, b)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books
}

type memGenreStore struct{ s *memStore }

func (g memGenreStore) Insert(genre *data.Genre) error {
	for _, other := range g.s.genres {
		if other.DeletedAt == nil && other.Name == genre.Name {
			return data.ErrDuplicateGenre
		}
	}
	genre.ID = g.s.id()
	genre.CreatedAt = time.Now()
	genre.UpdatedAt = genre.CreatedAt
	stored := *genre
	g.s.genres[genre.ID] = &stored
	return nil
}

func (g memGenreStore) GetAll() ([]*data.Genre, error) {
	genres := []*data.Genre{}
	for _, stored := range g.s.genres {
		if stored.DeletedAt != nil {
			continue
		}
		genre := *stored
		count := len(g.s.liveBooksForGenre(genre.ID))
		genre.BookCount = &count
		genres = append(genres, &genre)
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i].Name < genres[j].Name })
	return genres, nil
}

func (g memGenreStore) Get(id int64) (*data.Genre, error) {
	stored, ok := g.s.genres[id]
	if !ok || stored.DeletedAt != nil {
		return nil, data.ErrRecordNotFound
	}
	genre := *stored
	genre.Books = g.s.liveBooksForGenre(id)
	count := len(genre.Books)
	genre.BookCount = &count
	return &genre, nil
}

func (g memGenreStore) Update(genre *data.Genre) error {
	stored, ok := g.s.genres[genre.ID]
	if !ok || stored.DeletedAt != nil {
		return data.ErrRecordNotFound
	}
	for _, other := range g.s.genres {
		if other.ID != genre.ID && other.DeletedAt == nil && other.Name == genre.Name {
			return data.ErrDuplicateGenre
		}
	}
	stored.Name = genre.Name
	stored.UpdatedAt = time.Now()
	genre.UpdatedAt = stored.UpdatedAt
	return nil
}

func (g memGenreStore) SoftDelete(id int64) (*data.Genre, error) {
	stored, ok := g.s.genres[id]
	if !ok || stored.DeletedAt != nil {
		return nil, data.ErrRecordNotFound
	}
	var blockers []data.BookRef
	for _, b := range g.s.liveBooksForGenre(id) {
		blockers = append(blockers, data.BookRef{ID: b.ID, Title: b.Title})
	}
	if len(blockers) > 0 {
		return nil, &data.GenreInUseError{Books: blockers}
	}
	now := time.Now()
	stored.DeletedAt = &now
	stored.UpdatedAt = now
	genre := *stored
	return &genre, nil
}

type memBookStore struct{ s *memStore }

func (b memBookStore) Insert(book *data.Book) error {
	for _, other := range b.s.books {
		if other.DeletedAt == nil && other.Title == book.Title {
			return data.ErrDuplicateTitle
		}
	}
	book.ID = b.s.id()
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt
	stored := *book
	stored.Genre = nil
	b.s.books[book.ID] = &stored
	return nil
}

func (b memBookStore) GetAll(title string, filters data.Filters) ([]*data.Book, data.Metadata, error) {
	matched := []*data.Book{}
	for _, stored := range b.s.books {
		if stored.DeletedAt != nil {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(stored.Title), strings.ToLower(title)) {
			continue
		}
		book := *stored
		if genre, ok := b.s.genres[book.GenreID]; ok {
			book.Genre = &data.Genre{ID: genre.ID, Name: genre.Name}
		}
		matched = append(matched, &book)
	}
	// Newest first; ids are monotonic so they stand in for created_at.
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	start := (filters.Page - 1) * filters.PageSize
	if start > total {
		start = total
	}
	end := start + filters.PageSize
	if end > total {
		end = total
	}
	page := matched[start:end]

	metadata := data.Metadata{}
	if total > 0 {
		metadata = data.Metadata{
			CurrentPage:  filters.Page,
			PageSize:     filters.PageSize,
			FirstPage:    1,
			LastPage:     int(math.Ceil(float64(total) / float64(filters.PageSize))),
			TotalRecords: total,
		}
	}
	return page, metadata, nil
}

func (b memBookStore) Get(id int64) (*data.Book, error) {
	stored, ok := b.s.books[id]
	if !ok || stored.DeletedAt != nil {
		return nil, data.ErrRecordNotFound
	}
	book := *stored
	if genre, ok := b.s.genres[book.GenreID]; ok {
		book.Genre = &data.Genre{ID: genre.ID, Name: genre.Name}
	}
	return &book, nil
}

func (b memBookStore) Update(book *data.Book) error {
	stored, ok := b.s.books[book.ID]
	if !ok || stored.DeletedAt != nil {
		return data.ErrRecordNotFound
	}
	for _, other := range b.s.books {
		if other.ID != book.ID && other.DeletedAt == nil && other.Title == book.Title {
			return data.ErrDuplicateTitle
		}
	}
	updated := *book
	updated.Genre = nil
	updated.UpdatedAt = time.Now()
	b.s.books[book.ID] = &updated
	book.UpdatedAt = updated.UpdatedAt
	return nil
}

func (b memBookStore) SoftDelete(id int64) (*data.Book, error) {
	stored, ok := b.s.books[id]
	if !ok || stored.DeletedAt != nil {
		return nil, data.ErrRecordNotFound
	}
	now := time.Now()
	stored.DeletedAt = &now
	stored.UpdatedAt = now
	book := *stored
	if genre, ok := b.s.genres[book.GenreID]; ok {
		book.Genre = &data.Genre{ID: genre.ID, Name: genre.Name}
	}
	return &book, nil
}

type memUserStore struct{ s *memStore }

func (u memUserStore) Get(id int64) (*data.User, error) {
	user, ok := u.s.users[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	cp := *user
	return &cp, nil
}

func (u memUserStore) GetForToken(tokenPlaintext string) (*data.User, error) {
	id, ok := u.s.tokens[tokenPlaintext]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return u.Get(id)
}

type memOrderStore struct{ s *memStore }

func (o memOrderStore) genreName(genreID int64) string {
	if genre, ok := o.s.genres[genreID]; ok {
		return genre.Name
	}
	return ""
}

func (o memOrderStore) Create(userID int64, items []data.OrderItemInput) (*data.OrderReceipt, error) {
	user, ok := o.s.users[userID]
	if !ok {
		return nil, data.ErrUserNotFound
	}

	// Pre-validation: first failing item wins, nothing mutated yet.
	for _, item := range items {
		book, ok := o.s.books[item.BookID]
		if !ok || book.DeletedAt != nil {
			return nil, &data.BookNotFoundError{ID: item.BookID}
		}
		if book.StockQuantity < item.Quantity {
			return nil, &data.InsufficientStockError{
				Title:     book.Title,
				Available: book.StockQuantity,
				Requested: item.Quantity,
			}
		}
	}

	order := &memOrder{id: o.s.id(), userID: userID, createdAt: time.Now()}
	receipt := &data.OrderReceipt{
		ID:        order.id,
		User:      data.User{ID: user.ID, Username: user.Username, Email: user.Email},
		Items:     []data.OrderLine{},
		CreatedAt: order.createdAt,
	}

	total := decimal.Zero
	for _, item := range items {
		book := o.s.books[item.BookID]
		line := data.OrderLine{
			ID: o.s.id(),
			Book: data.OrderBook{
				ID:     book.ID,
				Title:  book.Title,
				Writer: book.Writer,
				Price:  book.Price,
				Genre:  o.genreName(book.GenreID),
			},
			Quantity: item.Quantity,
			Subtotal: book.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		book.StockQuantity -= item.Quantity
		total = total.Add(line.Subtotal)
		receipt.TotalQuantity += item.Quantity
		receipt.Items = append(receipt.Items, line)
		order.items = append(order.items, memOrderItem{id: line.ID, bookID: book.ID, qty: item.Quantity})
	}

	order.total = total
	receipt.TotalPrice = total
	o.s.orders = append(o.s.orders, order)
	return receipt, nil
}

func (o memOrderStore) GetAll() ([]*data.OrderSummary, error) {
	summaries := []*data.OrderSummary{}
	for i := len(o.s.orders) - 1; i >= 0; i-- { // newest first
		order := o.s.orders[i]
		user := o.s.users[order.userID]
		summary := &data.OrderSummary{
			ID:         order.id,
			User:       data.User{ID: user.ID, Username: user.Username, Email: user.Email},
			TotalPrice: order.total,
			Items:      []data.OrderFlatItem{},
			CreatedAt:  order.createdAt,
		}
		for _, item := range order.items {
			book := o.s.books[item.bookID]
			summary.Items = append(summary.Items, data.OrderFlatItem{
				BookTitle: book.Title,
				Genre:     o.genreName(book.GenreID),
				Quantity:  item.qty,
				Price:     book.Price,
			})
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (o memOrderStore) Get(id int64) (*data.OrderReceipt, error) {
	for _, order := range o.s.orders {
		if order.id != id {
			continue
		}
		user := o.s.users[order.userID]
		receipt := &data.OrderReceipt{
			ID:         order.id,
			User:       data.User{ID: user.ID, Username: user.Username, Email: user.Email},
			TotalPrice: order.total,
			Items:      []data.OrderLine{},
			CreatedAt:  order.createdAt,
		}
		for _, item := range order.items {
			book := o.s.books[item.bookID]
			line := data.OrderLine{
				ID: item.id,
				Book: data.OrderBook{
					ID:        book.ID,
					Title:     book.Title,
					Writer:    book.Writer,
					Publisher: book.Publisher,
					Price:     book.Price,
					Genre:     o.genreName(book.GenreID),
				},
				Quantity: item.qty,
				Subtotal: book.Price.Mul(decimal.NewFromInt(int64(item.qty))),
			}
			receipt.TotalQuantity += item.qty
			receipt.Items = append(receipt.Items, line)
		}
		return receipt, nil
	}
	return nil, data.ErrRecordNotFound
}

func (o memOrderStore) Statistics() (*data.OrderStatistics, error) {
	stats := &data.OrderStatistics{AverageTransactionValue: decimal.Zero}
	stats.TotalTransactions = len(o.s.orders)
	if stats.TotalTransactions == 0 {
		return stats, nil
	}

	sum := decimal.Zero
	for _, order := range o.s.orders {
		sum = sum.Add(order.total)
	}
	stats.AverageTransactionValue = sum.DivRound(decimal.NewFromInt(int64(stats.TotalTransactions)), 2)

	counts := make(map[string]int)
	for _, order := range o.s.orders {
		for _, item := range order.items {
			book, ok := o.s.books[item.bookID]
			if !ok || book.DeletedAt != nil {
				continue
			}
			genre, ok := o.s.genres[book.GenreID]
			if !ok || genre.DeletedAt != nil {
				continue
			}
			counts[genre.Name]++
		}
	}
	if len(counts) == 0 {
		return stats, nil
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	most, least := names[0], names[0]
	for _, name := range names[1:] {
		if counts[name] > counts[most] {
			most = name
		}
		if counts[name] < counts[least] {
			least = name
		}
	}
	stats.MostPopularGenre = &most
	stats.LeastPopularGenre = &least
	return stats, nil
}

// newTestApplication builds an application wired to the in-memory store, with
// logging discarded and the rate limiter disabled.
func newTestApplication(s *memStore) *applicationDependencies {
	app := &applicationDependencies{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		models: data.Models{
			Genres: memGenreStore{s},
			Books:  memBookStore{s},
			Users:  memUserStore{s},
			Orders: memOrderStore{s},
		},
	}
	app.config.environment = "test"
	app.config.limiter.enabled = false
	return app
}

// jsonResponse mirrors the response envelope loosely enough to decode any
// endpoint's body.
type jsonResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Error      json.RawMessage `json:"error"`
	Count      *int            `json:"count"`
	Pagination *data.Metadata  `json:"pagination"`
	Data       json.RawMessage `json:"data"`
	Books      []data.BookRef  `json:"books"`
}

// do issues a request against ts and decodes the envelope. A non-empty token
// is sent as a bearer Authorization header.
func do(t *testing.T, ts *httptest.Server, method, path, body, token string) (int, jsonResponse) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var envelope jsonResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&envelope))
	return res.StatusCode, envelope
}

// decodeData unmarshals the envelope's "data" field into dst.
func decodeData(t *testing.T, envelope jsonResponse, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

// fieldErrors decodes the envelope's "error" field as a validation map.
func fieldErrors(t *testing.T, envelope jsonResponse) map[string]string {
	t.Helper()
	errs := make(map[string]string)
	require.NoError(t, json.Unmarshal(envelope.Error, &errs))
	return errs
}
