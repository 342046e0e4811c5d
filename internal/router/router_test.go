package router

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/fittrack/internal/db/memorystorage"
	"github.com/patric-chuzhbe/fittrack/internal/ipchecker"
	"github.com/patric-chuzhbe/fittrack/internal/logger"
	"github.com/patric-chuzhbe/fittrack/internal/mockstorage"
	"github.com/patric-chuzhbe/fittrack/internal/models"
	"github.com/patric-chuzhbe/fittrack/internal/service"
)

func newTestServer(t *testing.T, trustedSubnet string) (*httptest.Server, *service.Service) {
	t.Helper()

	err := logger.Init("debug")
	require.NoError(t, err)

	db, err := memorystorage.New()
	require.NoError(t, err)

	svc := service.New(db)

	checker, err := ipchecker.New(trustedSubnet)
	require.NoError(t, err)

	srv := httptest.NewServer(New(svc, checker))
	t.Cleanup(srv.Close)

	return srv, svc
}

func registerUser(t *testing.T, srv *httptest.Server, username string) models.User {
	t.Helper()

	var usr models.User
	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.CreateUserRequest{Username: username}).
		SetResult(&usr).
		Post(srv.URL + "/api/users")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())
	require.NotEmpty(t, usr.ID)

	return usr
}

func logExercise(t *testing.T, srv *httptest.Server, userID string, req models.ExerciseRequest) {
	t.Helper()

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(fmt.Sprintf("%s/api/users/%s/exercises", srv.URL, userID))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())
}

func TestPostApiusers(t *testing.T) {
	srv, _ := newTestServer(t, "")

	usr := registerUser(t, srv, "alice")
	assert.Equal(t, "alice", usr.Username)

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.CreateUserRequest{Username: "alice"}).
		Post(srv.URL + "/api/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "username already taken")
}

func TestPostApiusersWithEmptyUsername(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.CreateUserRequest{Username: ""}).
		Post(srv.URL + "/api/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
}

func TestGetApiusers(t *testing.T) {
	srv, _ := newTestServer(t, "")

	registerUser(t, srv, "alice")
	registerUser(t, srv, "bob")

	var users []models.User
	resp, err := resty.New().R().
		SetResult(&users).
		Get(srv.URL + "/api/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}

func TestPostApiusersExercises(t *testing.T) {
	srv, _ := newTestServer(t, "")
	usr := registerUser(t, srv, "alice")

	var exercise models.ExerciseResponse
	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.ExerciseRequest{
			Description: "run",
			Duration:    30,
			Date:        "2023-01-10",
		}).
		SetResult(&exercise).
		Post(fmt.Sprintf("%s/api/users/%s/exercises", srv.URL, usr.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())

	assert.Equal(t, "alice", exercise.Username)
	assert.Equal(t, "run", exercise.Description)
	assert.Equal(t, 30, exercise.Duration)
	assert.Equal(t, "Tue Jan 10 2023", exercise.Date)
	assert.NotEmpty(t, exercise.ID)
}

func TestPostApiusersExercisesForUnknownUser(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.ExerciseRequest{Description: "run", Duration: 30}).
		Post(srv.URL + "/api/users/nonexistent-id/exercises")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestPostApiusersExercisesWithInvalidPayload(t *testing.T) {
	srv, _ := newTestServer(t, "")
	usr := registerUser(t, srv, "alice")

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.ExerciseRequest{Description: "run"}).
		Post(fmt.Sprintf("%s/api/users/%s/exercises", srv.URL, usr.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
}

func TestGetApiusersLogs(t *testing.T) {
	srv, _ := newTestServer(t, "")
	usr := registerUser(t, srv, "alice")
	logExercise(t, srv, usr.ID, models.ExerciseRequest{Description: "run", Duration: 30, Date: "2023-01-10"})
	logExercise(t, srv, usr.ID, models.ExerciseRequest{Description: "swim", Duration: 45, Date: "2023-02-01"})

	type tTestCase struct {
		name          string
		queryParams   map[string]string
		expectedCount int
		expectedFirst string
	}
	testCases := []tTestCase{
		{
			name:          "no filters",
			queryParams:   map[string]string{},
			expectedCount: 2,
			expectedFirst: "run",
		},
		{
			name:          "from filter",
			queryParams:   map[string]string{"from": "2023-01-15"},
			expectedCount: 1,
			expectedFirst: "swim",
		},
		{
			name:          "to filter",
			queryParams:   map[string]string{"to": "2023-01-15"},
			expectedCount: 1,
			expectedFirst: "run",
		},
		{
			name:          "limit keeps the earliest entry",
			queryParams:   map[string]string{"limit": "1"},
			expectedCount: 1,
			expectedFirst: "run",
		},
		{
			name:          "unparseable limit is ignored",
			queryParams:   map[string]string{"limit": "many"},
			expectedCount: 2,
			expectedFirst: "run",
		},
		{
			name:          "from after to",
			queryParams:   map[string]string{"from": "2023-03-01", "to": "2023-01-01"},
			expectedCount: 0,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var logs models.LogResponse
			resp, err := resty.New().R().
				SetQueryParams(testCase.queryParams).
				SetResult(&logs).
				Get(fmt.Sprintf("%s/api/users/%s/logs", srv.URL, usr.ID))
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode())

			assert.Equal(t, "alice", logs.Username)
			assert.Equal(t, usr.ID, logs.ID)
			assert.Equal(t, testCase.expectedCount, logs.Count)
			assert.Len(t, logs.Log, testCase.expectedCount)
			if testCase.expectedCount > 0 {
				assert.Equal(t, testCase.expectedFirst, logs.Log[0].Description)
			}
		})
	}
}

func TestGetApiusersLogsForUnknownUser(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := resty.New().R().
		Get(srv.URL + "/api/users/nonexistent-id/logs")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "user not found")
}

func TestGetApiusersLogsWithUnparseableDate(t *testing.T) {
	srv, _ := newTestServer(t, "")
	usr := registerUser(t, srv, "alice")

	resp, err := resty.New().R().
		SetQueryParam("from", "not-a-date").
		Get(fmt.Sprintf("%s/api/users/%s/logs", srv.URL, usr.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "invalid date")
}

func TestGetApiusersLogsOnStoreFailure(t *testing.T) {
	err := logger.Init("debug")
	require.NoError(t, err)

	db := &mockstorage.StorageMock{}
	db.On("GetUserByID", mock.Anything, "some-user").
		Return(&models.User{ID: "some-user", Username: "alice"}, nil)
	db.On("FindExercisesByUser", mock.Anything, "some-user").
		Return(nil, errors.New("connection reset"))

	checker, err := ipchecker.New("")
	require.NoError(t, err)

	srv := httptest.NewServer(New(service.New(db), checker))
	defer srv.Close()

	resp, err := resty.New().R().Get(srv.URL + "/api/users/some-user/logs")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "connection reset")

	db.AssertExpectations(t)
}

func TestPostApiusersForGzip(t *testing.T) {
	srv, _ := newTestServer(t, "")

	body, err := gzipString(`{"username": "alice"}`)
	require.NoError(t, err)

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetHeader("Content-Encoding", "gzip").
		SetHeader("Accept-Encoding", "gzip").
		SetBody(body).
		Post(srv.URL + "/api/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())

	var usr models.User
	err = json.Unmarshal(resp.Body(), &usr)
	require.NoError(t, err)
	assert.Equal(t, "alice", usr.Username)
}

func TestGetPing(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := resty.New().R().Get(srv.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestGetPingOnStoreFailure(t *testing.T) {
	err := logger.Init("debug")
	require.NoError(t, err)

	db := &mockstorage.StorageMock{}
	db.On("Ping", mock.Anything).Return(errors.New("no connection"))

	checker, err := ipchecker.New("")
	require.NoError(t, err)

	srv := httptest.NewServer(New(service.New(db), checker))
	defer srv.Close()

	resp, err := resty.New().R().Get(srv.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
}

func TestGetApiinternalstats(t *testing.T) {
	srv, _ := newTestServer(t, "127.0.0.0/8")
	usr := registerUser(t, srv, "alice")
	logExercise(t, srv, usr.ID, models.ExerciseRequest{Description: "run", Duration: 30, Date: "2023-01-10"})

	var stats models.InternalStatsResponse
	resp, err := resty.New().R().
		SetHeader("X-Real-IP", "127.0.0.1").
		SetResult(&stats).
		Get(srv.URL + "/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	assert.Equal(t, int64(1), stats.Users)
	assert.Equal(t, int64(1), stats.Exercises)
}

func TestGetApiinternalstatsDeniesUntrustedClients(t *testing.T) {
	srv, _ := newTestServer(t, "10.0.0.0/8")

	resp, err := resty.New().R().
		SetHeader("X-Real-IP", "192.168.0.1").
		Get(srv.URL + "/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
}

func TestGetApiinternalstatsDeniedWithoutTrustedSubnet(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := resty.New().R().
		SetHeader("X-Real-IP", "127.0.0.1").
		Get(srv.URL + "/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
}

func gzipString(input string) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)

	_, err := gzipWriter.Write([]byte(input))
	if err != nil {
		return nil, err
	}

	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
