package sponte

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sponte-hub/sponte-dashboard/internal/domain/school"
	"github.com/sponte-hub/sponte-dashboard/internal/domain/shared"
)

// fakeSponte is an httptest stand-in for the Sponte integration service.
type fakeSponte struct {
	t *testing.T

	login    string
	password string
	token    string

	// handler serves data endpoints once auth and codCliSponte checks pass.
	handler http.HandlerFunc

	loginCalls int32
	dataCalls  int32

	server *httptest.Server
}

func newFakeSponte(t *testing.T, handler http.HandlerFunc) *fakeSponte {
	t.Helper()
	f := &fakeSponte{
		t:        t,
		login:    "dashboard",
		password: "secret",
		token:    "token-1",
		handler:  handler,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSponte) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/login" {
		atomic.AddInt32(&f.loginCalls, 1)
		var body loginRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		if body.Login != f.login || body.Password != f.password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(loginResponse{Token: f.token})
		return
	}

	atomic.AddInt32(&f.dataCalls, 1)
	if r.Header.Get("Authorization") != "Bearer "+f.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.URL.Query().Get("codCliSponte") != "3751" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.handler(w, r)
}

func (f *fakeSponte) newClient() *Client {
	cfg := DefaultClientConfig(f.server.URL)
	cfg.Login = f.login
	cfg.Password = f.password
	cfg.ClientCode = 3751
	cfg.Timeout = 5 * time.Second
	// Keep backoff out of the test runtime.
	cfg.RetryConfig = RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	cfg.RateLimiterConfig = RateLimiterConfig{RequestsPerSecond: 10000, BurstSize: 10000}
	return NewClient(cfg)
}

func pageJSON(t *testing.T, rows any, totalPages int) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"listDados":    rows,
		"totalPaginas": totalPages,
	})
	require.NoError(t, err)
	return payload
}

func TestClient_LazyLoginAndListClasses(t *testing.T) {
	fake := newFakeSponte(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/turmas", r.URL.Path)
		_, _ = w.Write(pageJSON(t, []map[string]any{
			{"turmaID": 1, "nomeTurma": "Go Basics", "situacaoTurma": 1},
			{"turmaID": 2, "nomeTurma": "Go Advanced", "situacaoTurma": 2},
		}, 1))
	})
	client := fake.newClient()

	classes, err := client.ListClasses(context.Background(), ClassesFilter{})
	require.NoError(t, err)

	require.Len(t, classes, 2)
	assert.Equal(t, 1, classes[0].ID)
	assert.Equal(t, "Go Basics", classes[0].Name)
	assert.Equal(t, school.ClassActive, classes[0].Status)
	assert.Equal(t, school.ClassClosed, classes[1].Status)

	// The token is acquired lazily, exactly once.
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.loginCalls))
}

func TestClient_RetryBudget_TransientFailuresThenSuccess(t *testing.T) {
	var attempts int32
	fake := newFakeSponte(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(pageJSON(t, []map[string]any{
			{"turmaID": 7, "nomeTurma": "Recovered", "situacaoTurma": 1},
		}, 1))
	})
	client := fake.newClient()

	classes, err := client.ListClasses(context.Background(), ClassesFilter{})
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Recovered", classes[0].Name)

	// Two failures plus the success consume exactly the three-attempt budget.
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestClient_RetryBudget_Exhausted(t *testing.T) {
	var attempts int32
	fake := newFakeSponte(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	client := fake.newClient()

	_, err := client.ListClasses(context.Background(), ClassesFilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestClient_ClientErrorIsNotRetried(t *testing.T) {
	var attempts int32
	fake := newFakeSponte(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	})
	client := fake.newClient()

	_, err := client.ListStudents(context.Background(), StudentsFilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrBadRequest)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestClient_ExpiredTokenReauthenticatesOnce(t *testing.T) {
	fake := newFakeSponte(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pageJSON(t, []map[string]any{
			{"alunoID": 10, "nomeAluno": "Ana", "situacao": -1},
		}, 1))
	})
	client := fake.newClient()

	// Prime the session, then invalidate the token server-side.
	require.NoError(t, client.Authenticate(context.Background()))
	fake.token = "token-2"

	students, err := client.ListStudents(context.Background(), StudentsFilter{Status: school.EnrollmentActive})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Ana", students[0].Name)
	assert.True(t, students[0].IsActive())

	// One priming login plus one transparent refresh.
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.loginCalls))
}

func TestClient_BadCredentials(t *testing.T) {
	fake := newFakeSponte(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("data endpoint must not be reached without a token")
	})
	client := fake.newClient()
	client.config.Password = "wrong"

	_, err := client.ListClasses(context.Background(), ClassesFilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrAuthentication)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fake.dataCalls))
}

func TestClient_PaginationConcatenatesAllPages(t *testing.T) {
	const totalPages = 3
	fake := newFakeSponte(t, func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("pagina"))
		require.NoError(t, err)
		require.LessOrEqual(t, page, totalPages)

		_, _ = w.Write(pageJSON(t, []map[string]any{
			{"aulaID": page, "turmaID": 1, "dataAula": fmt.Sprintf("2026-08-0%d", page), "situacao": 1},
		}, totalPages))
	})
	client := fake.newClient()

	lessons, err := client.ListLessons(context.Background(), LessonsFilter{})
	require.NoError(t, err)

	require.Len(t, lessons, totalPages)
	for i, l := range lessons {
		assert.Equal(t, i+1, l.ID)
		assert.Equal(t, school.LessonConfirmed, l.Status)
	}
	assert.Equal(t, int32(totalPages), atomic.LoadInt32(&fake.dataCalls))
}

func TestClient_PaginationCapStopsRunawayTotalPages(t *testing.T) {
	fake := newFakeSponte(t, func(w http.ResponseWriter, r *http.Request) {
		// The service claims a million pages; the cap must stop the walk.
		_, _ = w.Write(pageJSON(t, []map[string]any{
			{"turmaID": 1, "nomeTurma": "X", "situacaoTurma": 1},
		}, 1_000_000))
	})
	client := fake.newClient()
	client.config.MaxPages = 5

	classes, err := client.ListClasses(context.Background(), ClassesFilter{})
	require.NoError(t, err)

	assert.Len(t, classes, 5)
	assert.Equal(t, int32(5), atomic.LoadInt32(&fake.dataCalls))
}

func TestClient_PaginationStopsOnEmptyPage(t *testing.T) {
	fake := newFakeSponte(t, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("pagina"))
		if page > 1 {
			_, _ = w.Write(pageJSON(t, []map[string]any{}, 10))
			return
		}
		_, _ = w.Write(pageJSON(t, []map[string]any{
			{"turmaID": 1, "nomeTurma": "Solo", "situacaoTurma": 1},
		}, 10))
	})
	client := fake.newClient()

	classes, err := client.ListClasses(context.Background(), ClassesFilter{})
	require.NoError(t, err)

	assert.Len(t, classes, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.dataCalls))
}

func TestClient_DeadlineMapsToTimeout(t *testing.T) {
	release := make(chan struct{})
	fake := newFakeSponte(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	// Registered after newFakeSponte so the handler unblocks before the
	// server's own cleanup waits on it.
	t.Cleanup(func() { close(release) })
	client := fake.newClient()

	// Prime the token so the deadline hits the data request, not the login.
	require.NoError(t, client.Authenticate(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.ListClasses(ctx, ClassesFilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrTimeout)
}

func TestAPIError_TaxonomyMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, shared.ErrAuthentication},
		{http.StatusForbidden, shared.ErrAuthentication},
		{http.StatusBadRequest, shared.ErrBadRequest},
		{http.StatusUnprocessableEntity, shared.ErrBadRequest},
		{http.StatusInternalServerError, shared.ErrUnavailable},
		{http.StatusBadGateway, shared.ErrUnavailable},
	}

	for _, tt := range tests {
		err := &APIError{StatusCode: tt.status}
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}
