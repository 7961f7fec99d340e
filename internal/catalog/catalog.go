package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dejobratic/libris/internal/storage"
)

// Catalog manages the books collection. Every mutation reads the whole
// collection, changes it and writes it back.
type Catalog struct {
	store  storage.Store
	logger *slog.Logger

	mu sync.Mutex
}

func New(store storage.Store, logger *slog.Logger) *Catalog {
	return &Catalog{store: store, logger: logger}
}

func (c *Catalog) load(ctx context.Context) ([]Book, error) {
	books, err := storage.Load(ctx, c.store, storage.Books, []Book{})
	if err != nil {
		return nil, err
	}
	out := make([]Book, len(books))
	copy(out, books)
	return out, nil
}

// List returns every book in catalog order.
func (c *Catalog) List(ctx context.Context) ([]Book, error) {
	return c.load(ctx)
}

// Get returns a single book.
func (c *Catalog) Get(ctx context.Context, id int64) (*Book, error) {
	books, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range books {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, ErrBookNotFound
}

// Add appends a new available, unrated book.
func (c *Catalog) Add(ctx context.Context, input NewBook) (*Book, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	books, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	book := Book{
		ID:         nextID(books),
		Title:      input.Title,
		Author:     input.Author,
		DailyPrice: input.DailyPrice,
		Available:  true,
	}
	if err := storage.Save(ctx, c.store, storage.Books, append(books, book)); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "book added", "book_id", book.ID, "title", book.Title)
	return &book, nil
}

// Update edits title, author or price.
func (c *Catalog) Update(ctx context.Context, id int64, update BookUpdate) (*Book, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	var updated *Book
	err := c.mutate(ctx, id, func(b *Book) {
		if update.Title != nil {
			b.Title = *update.Title
		}
		if update.Author != nil {
			b.Author = *update.Author
		}
		if update.DailyPrice != nil {
			b.DailyPrice = *update.DailyPrice
		}
		snapshot := *b
		updated = &snapshot
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrBookNotFound
	}
	return updated, nil
}

// Delete removes a book. Deleting an unknown id returns ErrBookNotFound.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	books, err := c.load(ctx)
	if err != nil {
		return err
	}

	kept := books[:0]
	for _, b := range books {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(books) {
		return ErrBookNotFound
	}

	if err := storage.Save(ctx, c.store, storage.Books, kept); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "book deleted", "book_id", id)
	return nil
}

// Reserve marks a book unavailable. Unknown ids are ignored.
func (c *Catalog) Reserve(ctx context.Context, id int64) error {
	return c.setAvailable(ctx, id, false)
}

// Unreserve marks a book available again. Unknown ids are ignored.
func (c *Catalog) Unreserve(ctx context.Context, id int64) error {
	return c.setAvailable(ctx, id, true)
}

func (c *Catalog) setAvailable(ctx context.Context, id int64, available bool) error {
	err := c.mutate(ctx, id, func(b *Book) { b.Available = available })
	if err != nil {
		return fmt.Errorf("set availability of book %d: %w", id, err)
	}
	c.logger.DebugContext(ctx, "book availability changed", "book_id", id, "available", available)
	return nil
}

// Rate folds a 1..5 rating into the book's running average.
func (c *Catalog) Rate(ctx context.Context, id int64, value int) (*Book, error) {
	if value < MinRating || value > MaxRating {
		return nil, ErrInvalidRating
	}

	var rated *Book
	err := c.mutate(ctx, id, func(b *Book) {
		*b = b.WithRating(value)
		snapshot := *b
		rated = &snapshot
	})
	if err != nil {
		return nil, err
	}
	if rated == nil {
		return nil, ErrBookNotFound
	}
	return rated, nil
}

// mutate applies fn to the book with id and writes the collection back.
// When no book matches, nothing is written.
func (c *Catalog) mutate(ctx context.Context, id int64, fn func(*Book)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	books, err := c.load(ctx)
	if err != nil {
		return err
	}

	found := false
	for i := range books {
		if books[i].ID == id {
			fn(&books[i])
			found = true
		}
	}
	if !found {
		return nil
	}
	return storage.Save(ctx, c.store, storage.Books, books)
}

func nextID(books []Book) int64 {
	var max int64
	for _, b := range books {
		if b.ID > max {
			max = b.ID
		}
	}
	return max + 1
}
