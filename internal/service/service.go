// Package service holds the application logic of the exercise tracker:
// user registration, exercise logging and the log query engine that
// produces a deterministic, filtered view of one user's exercise history.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/fittrack/internal/models"
)

type userKeeper interface {
	CreateUser(ctx context.Context, username string) (*models.User, error)

	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	GetUsers(ctx context.Context) ([]models.User, error)
}

type exerciseKeeper interface {
	InsertExercise(ctx context.Context, exercise *models.Exercise) (*models.Exercise, error)

	FindExercisesByUser(ctx context.Context, userID string) ([]models.Exercise, error)
}

type statsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfExercises(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	exerciseKeeper
	statsKeeper
	pinger
}

// ErrInvalidDate is returned when a `from`, `to` or exercise `date` value
// cannot be parsed as a calendar date.
var ErrInvalidDate = errors.New("invalid date")

// ErrValidation is returned when a request payload misses required fields
// or carries malformed values.
var ErrValidation = errors.New("invalid request payload")

// Service implements the application operations over an abstract entity store.
type Service struct {
	db       storage
	validate *validator.Validate
}

// New constructs a Service bound to the given entity store.
func New(db storage) *Service {
	return &Service{
		db:       db,
		validate: validator.New(),
	}
}

// RegisterUser creates a new user. The username is required and unique;
// storage reports a duplicate via storage.ErrUsernameTaken.
func (s *Service) RegisterUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return s.db.CreateUser(ctx, req.Username)
}

// GetUsers lists every registered user.
func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	return s.db.GetUsers(ctx)
}

// AddExercise logs an exercise entry for the given user. The user is
// resolved before anything else so an unknown id fails fast with
// storage.ErrUserNotFound. An omitted date defaults to the current time.
func (s *Service) AddExercise(
	ctx context.Context,
	userID string,
	req models.ExerciseRequest,
) (*models.ExerciseResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	usr, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	date := time.Now()
	if req.Date != "" {
		date, err = time.Parse(models.DateLayout, req.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
	}

	exercise, err := s.db.InsertExercise(ctx, &models.Exercise{
		UserID:      usr.ID,
		Description: req.Description,
		Duration:    req.Duration,
		Date:        date,
	})
	if err != nil {
		return nil, err
	}

	return &models.ExerciseResponse{
		ID:          exercise.ID,
		Username:    usr.Username,
		Description: exercise.Description,
		Duration:    exercise.Duration,
		Date:        models.CalendarDay(exercise.Date).Format(models.CalendarDayLayout),
	}, nil
}

// GetLogs produces the filtered view of one user's exercise history.
//
// The user is resolved first; an unknown id yields storage.ErrUserNotFound
// before any filtering happens. Entries are sorted ascending by calendar
// day (stable, so same-day entries keep insertion order), then narrowed by
// the inclusive from/to bounds and truncated to limit when limit > 0.
// An empty result is a valid response, not an error.
func (s *Service) GetLogs(
	ctx context.Context,
	userID string,
	from string,
	to string,
	limit int,
) (*models.LogResponse, error) {
	usr, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	exercises, err := s.db.FindExercisesByUser(ctx, usr.ID)
	if err != nil {
		return nil, err
	}

	// The store gives no ordering contract; make from/to/limit reproducible.
	sort.SliceStable(exercises, func(i, j int) bool {
		return models.CalendarDay(exercises[i].Date).Before(models.CalendarDay(exercises[j].Date))
	})

	if from != "" {
		fromDay, err := time.Parse(models.DateLayout, from)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
		exercises = funk.Filter(exercises, func(e models.Exercise) bool {
			return !models.CalendarDay(e.Date).Before(fromDay)
		}).([]models.Exercise)
	}

	if to != "" {
		toDay, err := time.Parse(models.DateLayout, to)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
		exercises = funk.Filter(exercises, func(e models.Exercise) bool {
			return !models.CalendarDay(e.Date).After(toDay)
		}).([]models.Exercise)
	}

	if limit > 0 && limit < len(exercises) {
		exercises = exercises[:limit]
	}

	log := funk.Map(exercises, func(e models.Exercise) models.LogEntry {
		return models.LogEntry{
			Description: e.Description,
			Duration:    e.Duration,
			Date:        models.CalendarDay(e.Date).Format(models.CalendarDayLayout),
		}
	}).([]models.LogEntry)

	return &models.LogResponse{
		ID:       usr.ID,
		Username: usr.Username,
		Count:    len(log),
		Log:      log,
	}, nil
}

// GetInternalStats returns service-wide counters for the stats endpoint.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	exercises, err := s.db.GetNumberOfExercises(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Users:     users,
		Exercises: exercises,
	}, nil
}

// Ping checks the health of the underlying entity store.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
