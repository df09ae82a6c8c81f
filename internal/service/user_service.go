package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"book-service/internal/entity"
	"book-service/internal/repository"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

type TokenIssuer interface {
	Issue(username string) (string, time.Time, error)
	Verify(token string) (string, error)
}

// UserService registers users, checks credentials and resolves bearer tokens to users.
type UserService struct {
	userRepo repository.UserRepositoryI
	hasher   PasswordHasher
	tokens   TokenIssuer

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService creates a new instance of UserService.
func NewUserService(userRepo repository.UserRepositoryI, hasher PasswordHasher, tokens TokenIssuer) *UserService {
	return &UserService{userRepo: userRepo, hasher: hasher, tokens: tokens}
}

// Register hashes the password and stores a new user.
func (s *UserService) Register(ctx context.Context, creds entity.Credentials) (*entity.User, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(creds.Password)
	if err != nil {
		logger.Error().Err(err).Msg("Error hashing password")
		return nil, err
	}

	user, err := s.userRepo.Create(ctx, creds.Username, hash)
	if err != nil {
		if errors.Is(err, entity.ErrUsernameTaken) {
			logger.Warn().Str("username", creds.Username).Msg("Username already registered")
		} else {
			logger.Error().Err(err).Msg("Error creating user")
		}
		return nil, err
	}

	logger.Info().Int("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	return user, nil
}

// FindByUsername returns (nil, nil) when the user does not exist.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

// Authenticate returns the user when the password matches. Unknown users and wrong passwords
// both yield entity.ErrUnauthorized, and unknown users still pay for one bcrypt comparison.
func (s *UserService) Authenticate(ctx context.Context, creds entity.Credentials) (*entity.User, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, entity.ErrUnauthorized
	}

	user, err := s.userRepo.GetByUsername(ctx, creds.Username)
	if err != nil {
		logger.Error().Err(err).Msg("Error looking up user")
		return nil, err
	}
	if user == nil {
		s.burnComparison(creds.Password)
		return nil, entity.ErrUnauthorized
	}

	ok, err := s.hasher.Verify(creds.Password, user.PasswordHash)
	if err != nil {
		logger.Error().Err(err).Int("user_id", user.ID).Msg("Stored password hash is unusable")
		return nil, err
	}
	if !ok {
		return nil, entity.ErrUnauthorized
	}
	return user, nil
}

// Login authenticates and issues a bearer token.
func (s *UserService) Login(ctx context.Context, creds entity.Credentials) (*entity.Token, error) {
	user, err := s.Authenticate(ctx, creds)
	if err != nil {
		if errors.Is(err, entity.ErrUnauthorized) {
			logger.Info().Msg("Failed login attempt")
		}
		return nil, err
	}

	tok, expiresAt, err := s.tokens.Issue(user.Username)
	if err != nil {
		logger.Error().Err(err).Msg("Error issuing token")
		return nil, err
	}
	return &entity.Token{AccessToken: tok, TokenType: "bearer", ExpiresAt: expiresAt}, nil
}

// Principal verifies a bearer token and resolves it to a registered user.
func (s *UserService) Principal(ctx context.Context, token string) (*entity.User, error) {
	username, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: unknown subject", entity.ErrUnauthorized)
	}
	return user, nil
}

func (s *UserService) burnComparison(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("dummy-password")
		if err != nil {
			logger.Error().Err(err).Msg("Error preparing dummy hash")
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}
