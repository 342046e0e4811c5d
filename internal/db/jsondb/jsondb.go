// Package jsondb implements the entity store on top of a single JSON file.
// The whole dataset is loaded into memory on open and written back on Flush
// and Close, which is plenty for the dataset sizes this service targets.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/fittrack/internal/db/storage"
	"github.com/patric-chuzhbe/fittrack/internal/models"
)

// JSONDB is a file-backed entity store. An empty fileName makes it purely
// in-memory; Flush and Close become no-ops then.
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

// CacheStruct is the serialized shape of the database file.
type CacheStruct struct {
	// Users maps user id to the stored record.
	Users map[string]*models.User

	// UserOrder keeps user ids in registration order.
	UserOrder []string

	// Usernames maps username to user id and backs the uniqueness check.
	Usernames map[string]string

	// Exercises maps user id to that user's entries in insertion order.
	Exercises map[string][]models.Exercise
}

// NewCache returns an initialized, empty cache.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:     map[string]*models.User{},
		UserOrder: []string{},
		Usernames: map[string]string{},
		Exercises: map[string][]models.Exercise{},
	}
}

func initDBFile(fileName string) error {
	emptyCache := NewCache()

	return writeToJSONFile(fileName, &emptyCache)
}

func writeToJSONFile(fileName string, cache *CacheStruct) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New opens the database file, creating it with an empty dataset when it
// does not exist yet.
func New(fileName string) (*JSONDB, error) {
	db := JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		err := initDBFile(fileName)
		if err != nil {
			return nil, err
		}
		err = parseJSONFile(db.fileName, &db.Cache)
		if err != nil {
			return nil, err
		}
	}

	return &db, nil
}

// CreateUser registers a new user with a generated id.
// Returns storage.ErrUsernameTaken when the username is already registered.
func (db *JSONDB) CreateUser(ctx context.Context, username string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Cache.Usernames[username]; exists {
		return nil, storage.ErrUsernameTaken
	}

	usr := &models.User{
		ID:       uuid.New().String(),
		Username: username,
	}
	db.Cache.Users[usr.ID] = usr
	db.Cache.UserOrder = append(db.Cache.UserOrder, usr.ID)
	db.Cache.Usernames[username] = usr.ID

	return usr, nil
}

// GetUserByID resolves a user id.
// Returns storage.ErrUserNotFound when the id is unknown.
func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return nil, storage.ErrUserNotFound
	}

	userCopy := *usr

	return &userCopy, nil
}

// GetUsers returns all users in registration order.
func (db *JSONDB) GetUsers(ctx context.Context) ([]models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]models.User, 0, len(db.Cache.UserOrder))
	for _, userID := range db.Cache.UserOrder {
		result = append(result, *db.Cache.Users[userID])
	}

	return result, nil
}

// InsertExercise appends an exercise entry for its owning user, assigning
// a generated id. Returns storage.ErrUserNotFound when the owner is unknown.
func (db *JSONDB) InsertExercise(ctx context.Context, exercise *models.Exercise) (*models.Exercise, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Users[exercise.UserID]; !found {
		return nil, storage.ErrUserNotFound
	}

	stored := *exercise
	stored.ID = uuid.New().String()
	db.Cache.Exercises[exercise.UserID] = append(db.Cache.Exercises[exercise.UserID], stored)

	return &stored, nil
}

// FindExercisesByUser returns the user's entries. The slice is a copy, in
// insertion order, though callers must not rely on any ordering contract.
func (db *JSONDB) FindExercisesByUser(ctx context.Context, userID string) ([]models.Exercise, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	entries := db.Cache.Exercises[userID]
	result := make([]models.Exercise, len(entries))
	copy(result, entries)

	return result, nil
}

// GetNumberOfUsers returns the total amount of registered users.
func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

// GetNumberOfExercises returns the total amount of logged exercises.
func (db *JSONDB) GetNumberOfExercises(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var total int64
	for _, entries := range db.Cache.Exercises {
		total += int64(len(entries))
	}

	return total, nil
}

// Ping reports the store as healthy; there is no connection to check.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Flush persists the current dataset to the database file.
func (db *JSONDB) Flush(ctx context.Context) error {
	if db.fileName == "" {
		return nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, &db.Cache)
}

// Close persists the dataset and releases the store.
func (db *JSONDB) Close() error {
	return db.Flush(context.Background())
}
