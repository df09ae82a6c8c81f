package repository

import (
	"context"
	"fmt"
	"sync"

	"book-service/internal/entity"
)

// BookRepository keeps books in process memory, in insertion order.
type BookRepository struct {
	mu     sync.RWMutex
	books  []*entity.Book
	nextID int
}

func NewBookRepository() *BookRepository {
	return &BookRepository{nextID: 1}
}

// Create stores a copy of book under the next id. Ids start at 1 and are never reused.
func (r *BookRepository) Create(ctx context.Context, book *entity.Book) (*entity.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *book
	stored.ID = r.nextID
	r.nextID++
	r.books = append(r.books, &stored)

	out := stored
	return &out, nil
}

func (r *BookRepository) List(ctx context.Context) ([]*entity.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	books := make([]*entity.Book, 0, len(r.books))
	for _, b := range r.books {
		cp := *b
		books = append(books, &cp)
	}
	return books, nil
}

func (r *BookRepository) Get(ctx context.Context, id int) (*entity.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, notFound(id)
	}
	cp := *r.books[i]
	return &cp, nil
}

// Update replaces every mutable field of the book with the given id. The id is kept.
func (r *BookRepository) Update(ctx context.Context, id int, book *entity.Book) (*entity.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, notFound(id)
	}
	updated := *book
	updated.ID = id
	r.books[i] = &updated

	out := updated
	return &out, nil
}

// Delete removes the book and returns the removed record.
func (r *BookRepository) Delete(ctx context.Context, id int) (*entity.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, notFound(id)
	}
	removed := r.books[i]
	r.books = append(r.books[:i], r.books[i+1:]...)
	return removed, nil
}

// indexOf must be called with r.mu held.
func (r *BookRepository) indexOf(id int) int {
	for i, b := range r.books {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func notFound(id int) error {
	return fmt.Errorf("book %d: %w", id, entity.ErrNotFound)
}
