// Package mockstorage provides a testify-based mock implementation
// of the entity store contract. It is used for unit testing the service
// and HTTP handlers by simulating storage behavior and failures.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/fittrack/internal/models"
)

// StorageMock is a testify mock that implements the storage.Storage contract.
//
// Use it in service and router tests to simulate entity store behavior.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers is an optional function field that can be assigned
	// to define custom mock behavior for GetNumberOfUsers in tests.
	//
	// If set, GetNumberOfUsers will delegate to this function instead of
	// using testify's generic mock handler.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfExercises is an optional function field that can be used
	// to customize the return values of GetNumberOfExercises in tests.
	//
	// If non-nil, the mock implementation will call this function directly.
	OnGetNumberOfExercises func(ctx context.Context) (int64, error)
}

// CreateUser mocks user registration and returns the created record.
func (m *StorageMock) CreateUser(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Error(1)
}

// GetUserByID mocks resolving a user by id.
func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Error(1)
}

// GetUsers mocks listing all users.
func (m *StorageMock) GetUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

// InsertExercise mocks storing an exercise entry.
func (m *StorageMock) InsertExercise(ctx context.Context, exercise *models.Exercise) (*models.Exercise, error) {
	args := m.Called(ctx, exercise)
	stored, _ := args.Get(0).(*models.Exercise)
	return stored, args.Error(1)
}

// FindExercisesByUser mocks fetching a user's exercise entries.
func (m *StorageMock) FindExercisesByUser(ctx context.Context, userID string) ([]models.Exercise, error) {
	args := m.Called(ctx, userID)
	exercises, _ := args.Get(0).([]models.Exercise)
	return exercises, args.Error(1)
}

// Ping mocks the storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// GetNumberOfUsers returns the number of users as defined by the mock.
//
// If OnGetNumberOfUsers is non-nil, it will be called to produce the result.
// Otherwise, the method returns 0 and no error by default.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	return 0, nil
}

// GetNumberOfExercises returns the number of logged exercises.
//
// If OnGetNumberOfExercises is defined, the method will call it and return
// its result. Otherwise, it defaults to returning 0 and no error.
func (m *StorageMock) GetNumberOfExercises(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfExercises != nil {
		return m.OnGetNumberOfExercises(ctx)
	}
	return 0, nil
}
