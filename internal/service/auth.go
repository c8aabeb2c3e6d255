package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"docqr/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// AuthService authenticates dashboard admins.
type AuthService interface {
	// EnsureAdmin creates the admin or resets its password to match configuration.
	EnsureAdmin(ctx context.Context, username, password string) (created bool, err error)

	// Authenticate checks a username/password pair and returns the canonical username.
	Authenticate(ctx context.Context, username, password string) (string, error)
}

type authService struct {
	repo repository.AdminRepository
	cost int
}

// NewAuthService constructs an AuthService. A cost of 0 uses bcrypt.DefaultCost.
func NewAuthService(repo repository.AdminRepository, cost int) AuthService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &authService{repo: repo, cost: cost}
}

func (s *authService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, errors.New("admin username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	created, err := s.repo.Upsert(ctx, username, string(hash))
	if err != nil {
		return false, fmt.Errorf("upsert admin: %w", err)
	}
	return created, nil
}

func (s *authService) Authenticate(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrInvalidCredentials
	}
	admin, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return admin.Username, nil
}
