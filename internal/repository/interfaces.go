package repository

import (
	"context"

	"book-service/internal/entity"
)

// BookRepositoryI defines operations on Book records.
type BookRepositoryI interface {
	Create(ctx context.Context, book *entity.Book) (*entity.Book, error)
	List(ctx context.Context) ([]*entity.Book, error)
	Get(ctx context.Context, id int) (*entity.Book, error)
	Update(ctx context.Context, id int, book *entity.Book) (*entity.Book, error)
	Delete(ctx context.Context, id int) (*entity.Book, error)
}

// UserRepositoryI defines operations on User records.
type UserRepositoryI interface {
	Create(ctx context.Context, username, passwordHash string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByID(ctx context.Context, id int) (*entity.User, error)
}
