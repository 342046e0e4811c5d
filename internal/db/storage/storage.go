// Package storage declares the contract every entity store backend
// implements, plus the sentinel errors the rest of the application matches
// against with errors.Is.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/fittrack/internal/models"
)

// ErrUserNotFound is returned when a user id does not resolve to a stored user.
var ErrUserNotFound = errors.New("user not found")

// ErrUsernameTaken is returned on an attempt to register an already
// registered username.
var ErrUsernameTaken = errors.New("username already taken")

// Storage is the full entity store contract: append-only create and read
// operations for users and exercises. No ordering is guaranteed for
// FindExercisesByUser; callers that need a deterministic view sort themselves.
type Storage interface {
	CreateUser(ctx context.Context, username string) (*models.User, error)

	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	GetUsers(ctx context.Context) ([]models.User, error)

	InsertExercise(ctx context.Context, exercise *models.Exercise) (*models.Exercise, error)

	FindExercisesByUser(ctx context.Context, userID string) ([]models.Exercise, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfExercises(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}
