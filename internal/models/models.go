// Package models defines the typed records and wire-level request/response
// shapes used across the exercise tracker: users, exercise entries, and the
// filtered log summary returned by the logs endpoint.
package models

import "time"

// DateLayout is the format accepted for `date`, `from` and `to` inputs.
const DateLayout = "2006-01-02"

// CalendarDayLayout is the format used to render an exercise date in
// responses. It identifies only the day, without time-of-day or zone.
const CalendarDayLayout = "Mon Jan 02 2006"

// User is a registered account. Users are created once and never mutated.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// Exercise is a single logged activity. It belongs to exactly one user via
// UserID and is never updated or reassigned after creation.
type Exercise struct {
	ID          string    `json:"_id"`
	UserID      string    `json:"userId"`
	Description string    `json:"description"`
	Duration    int       `json:"duration"`
	Date        time.Time `json:"date"`
}

// CreateUserRequest is the payload of POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required"`
}

// ExerciseRequest is the payload of POST /api/users/{userID}/exercises.
// Date is optional and defaults to the creation time when empty.
type ExerciseRequest struct {
	Description string `json:"description" validate:"required"`
	Duration    int    `json:"duration" validate:"required,gt=0"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ExerciseResponse echoes a created exercise with its date rendered as a
// calendar-day string.
type ExerciseResponse struct {
	ID          string `json:"_id"`
	Username    string `json:"username"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Date        string `json:"date"`
}

// LogEntry is one item of the filtered exercise log.
type LogEntry struct {
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Date        string `json:"date"`
}

// LogResponse is the summary returned by GET /api/users/{userID}/logs.
// Count is the number of entries in Log after filtering and truncation,
// not the unfiltered total.
type LogResponse struct {
	ID       string     `json:"_id"`
	Username string     `json:"username"`
	Count    int        `json:"count"`
	Log      []LogEntry `json:"log"`
}

// InternalStatsResponse carries service-wide counters for the internal
// stats endpoint.
type InternalStatsResponse struct {
	Users     int64 `json:"users"`
	Exercises int64 `json:"exercises"`
}

// Storage backend kinds, selected from configuration.
const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

// CalendarDay truncates t to its calendar day in UTC. Two instants on the
// same day map to the same value regardless of time-of-day.
func CalendarDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
