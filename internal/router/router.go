// Package router wires the HTTP surface of the exercise tracker: user
// registration and listing, exercise logging, the filtered log query,
// a storage health probe and a trusted-subnet-only stats endpoint.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/fittrack/internal/db/storage"
	"github.com/patric-chuzhbe/fittrack/internal/gzippedhttp"
	"github.com/patric-chuzhbe/fittrack/internal/logger"
	"github.com/patric-chuzhbe/fittrack/internal/models"
	"github.com/patric-chuzhbe/fittrack/internal/service"
)

type exerciseTracker interface {
	RegisterUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error)

	GetUsers(ctx context.Context) ([]models.User, error)

	AddExercise(ctx context.Context, userID string, req models.ExerciseRequest) (*models.ExerciseResponse, error)

	GetLogs(ctx context.Context, userID, from, to string, limit int) (*models.LogResponse, error)

	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)

	Ping(ctx context.Context) error
}

type clientIPChecker interface {
	Check(request *http.Request) (bool, error)

	IsTrustedSubnetEmpty() bool
}

// Router bundles the HTTP handlers of the service.
type Router struct {
	tracker   exerciseTracker
	ipChecker clientIPChecker
}

// New builds the chi mux with all routes and common middleware attached.
func New(tracker exerciseTracker, ipChecker clientIPChecker) *chi.Mux {
	theRouter := &Router{
		tracker:   tracker,
		ipChecker: ipChecker,
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.UngzipJSONRequest,
		gzippedhttp.GzipResponse,
	)

	router.Post(`/api/users`, theRouter.PostApiusers)
	router.Get(`/api/users`, theRouter.GetApiusers)
	router.Post(`/api/users/{userID}/exercises`, theRouter.PostApiusersExercises)
	router.Get(`/api/users/{userID}/logs`, theRouter.GetApiusersLogs)
	router.Get(`/api/internal/stats`, theRouter.GetApiinternalstats)
	router.Get(`/ping`, theRouter.GetPing)

	return router
}

// PostApiusers registers a new user.
func (rt *Router) PostApiusers(response http.ResponseWriter, request *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(request.Body).Decode(&req); err != nil {
		http.Error(response, err.Error(), http.StatusInternalServerError)
		return
	}

	usr, err := rt.tracker.RegisterUser(request.Context(), req)
	if err != nil {
		rt.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, usr)
}

// GetApiusers lists every registered user.
func (rt *Router) GetApiusers(response http.ResponseWriter, request *http.Request) {
	users, err := rt.tracker.GetUsers(request.Context())
	if err != nil {
		rt.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, users)
}

// PostApiusersExercises logs an exercise entry for the user from the URL.
func (rt *Router) PostApiusersExercises(response http.ResponseWriter, request *http.Request) {
	var req models.ExerciseRequest
	if err := json.NewDecoder(request.Body).Decode(&req); err != nil {
		http.Error(response, err.Error(), http.StatusInternalServerError)
		return
	}

	exercise, err := rt.tracker.AddExercise(request.Context(), chi.URLParam(request, "userID"), req)
	if err != nil {
		rt.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, exercise)
}

// GetApiusersLogs answers the filtered log query. The `from` and `to`
// parameters are calendar dates, `limit` a positive integer; an unparseable
// limit is treated as absent, matching the historical behavior of the API.
func (rt *Router) GetApiusersLogs(response http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	limit := 0
	if rawLimit := query.Get("limit"); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}

	logs, err := rt.tracker.GetLogs(
		request.Context(),
		chi.URLParam(request, "userID"),
		query.Get("from"),
		query.Get("to"),
		limit,
	)
	if err != nil {
		rt.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, logs)
}

// GetApiinternalstats reports service-wide counters. It is reachable only
// from the trusted subnet; without a configured subnet it always denies.
func (rt *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	if rt.ipChecker == nil || rt.ipChecker.IsTrustedSubnetEmpty() {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	trusted, err := rt.ipChecker.Check(request)
	if err != nil {
		rt.writeError(response, err)
		return
	}
	if !trusted {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	stats, err := rt.tracker.GetInternalStats(request.Context())
	if err != nil {
		rt.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

// GetPing checks the health of the entity store.
func (rt *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := rt.tracker.Ping(request.Context()); err != nil {
		rt.writeError(response, err)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// writeError maps application errors onto HTTP statuses: unresolved users
// are 404, duplicate usernames 409, everything else (malformed dates and
// payloads included) is reported as 500 carrying the underlying message.
func (rt *Router) writeError(response http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrUsernameTaken):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidDate), errors.Is(err, service.ErrValidation):
		status = http.StatusInternalServerError
	default:
		logger.Log.Errorln("storage failure", zap.Error(err))
	}

	http.Error(response, err.Error(), status)
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error encoding the response payload:", zap.Error(err))
	}
}
