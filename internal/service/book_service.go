package service

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"

	"book-service/internal/entity"
	"book-service/internal/events"
	"book-service/internal/repository"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "service").Logger()

// BookService validates book payloads, talks to the repository and announces changes.
type BookService struct {
	bookRepo  repository.BookRepositoryI
	publisher events.Publisher
	now       func() time.Time
}

// NewBookService creates a new instance of BookService. A nil publisher disables events.
func NewBookService(bookRepo repository.BookRepositoryI, publisher events.Publisher) *BookService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &BookService{
		bookRepo:  bookRepo,
		publisher: publisher,
		now:       time.Now,
	}
}

// CreateBook validates the input and stores it under a fresh id.
func (s *BookService) CreateBook(ctx context.Context, in entity.BookInput) (*entity.Book, error) {
	if err := in.Validate(); err != nil {
		logger.Debug().Err(err).Msg("Rejected book payload")
		return nil, err
	}

	book, err := s.bookRepo.Create(ctx, in.Book(0))
	if err != nil {
		logger.Error().Err(err).Msg("Error creating book")
		return nil, err
	}

	s.publish(ctx, entity.BookCreated, book)
	return book, nil
}

// ListBooks returns every book in insertion order.
func (s *BookService) ListBooks(ctx context.Context) ([]*entity.Book, error) {
	books, err := s.bookRepo.List(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing books")
		return nil, err
	}
	return books, nil
}

func (s *BookService) GetBook(ctx context.Context, id int) (*entity.Book, error) {
	book, err := s.bookRepo.Get(ctx, id)
	if err != nil {
		s.logLookupError(err, "Error getting book", id)
		return nil, err
	}
	return book, nil
}

// UpdateBook replaces all mutable fields of the book. The id never changes.
func (s *BookService) UpdateBook(ctx context.Context, id int, in entity.BookInput) (*entity.Book, error) {
	if err := in.Validate(); err != nil {
		logger.Debug().Err(err).Int("book_id", id).Msg("Rejected book payload")
		return nil, err
	}

	book, err := s.bookRepo.Update(ctx, id, in.Book(id))
	if err != nil {
		s.logLookupError(err, "Error updating book", id)
		return nil, err
	}

	s.publish(ctx, entity.BookUpdated, book)
	return book, nil
}

func (s *BookService) DeleteBook(ctx context.Context, id int) error {
	book, err := s.bookRepo.Delete(ctx, id)
	if err != nil {
		s.logLookupError(err, "Error deleting book", id)
		return err
	}

	s.publish(ctx, entity.BookDeleted, book)
	return nil
}

func (s *BookService) logLookupError(err error, msg string, id int) {
	if errors.Is(err, entity.ErrNotFound) {
		logger.Warn().Int("book_id", id).Msg("Book not found")
		return
	}
	logger.Error().Err(err).Int("book_id", id).Msg(msg)
}

// publish never fails the request; a lost event is only logged.
func (s *BookService) publish(ctx context.Context, typ entity.BookEventType, book *entity.Book) {
	ev := entity.BookEvent{Type: typ, Book: *book, At: s.now().UTC()}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logger.Error().Err(err).Int("book_id", book.ID).Str("event", string(typ)).Msg("Error publishing book event")
	}
}
