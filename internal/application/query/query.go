// Package query contains the read operations the dashboard UI consumes.
// Queries never modify state: each one is a self-contained use case with
// its own request/response types, reading through the TTL cache into the
// Sponte API client.
package query

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/sponte-hub/sponte-dashboard/internal/domain/finance"
	"github.com/sponte-hub/sponte-dashboard/internal/domain/school"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/cache"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/external/sponte"
)

// Cache key namespaces, one per upstream endpoint.
const (
	endpointClasses     = "turmas"
	endpointStudents    = "alunos"
	endpointLessons     = "aulas"
	endpointReceivables = "contasReceber"
	endpointPayables    = "contasPagar"
)

// Gateway is the slice of the Sponte client the query handlers depend on.
// *sponte.Client satisfies it; tests substitute fakes.
type Gateway interface {
	ListClasses(ctx context.Context, filter sponte.ClassesFilter) ([]school.Class, error)
	ListStudents(ctx context.Context, filter sponte.StudentsFilter) ([]school.Student, error)
	ListLessons(ctx context.Context, filter sponte.LessonsFilter) ([]school.Lesson, error)
	ListReceivables(ctx context.Context, filter sponte.EntriesFilter) ([]finance.Entry, error)
	ListPayables(ctx context.Context, filter sponte.EntriesFilter) ([]finance.Entry, error)
}

// fetchCached reads a record slice through the cache: on a hit the stored
// JSON payload is decoded; on a miss fetch runs, its result is stored, and
// every concurrent caller for the same key receives the same payload.
func fetchCached[T any](ctx context.Context, c *cache.Cache, endpoint string, params url.Values, ttl time.Duration, fetch func(ctx context.Context) ([]T, error)) ([]T, error) {
	payload, err := c.GetOrFetch(ctx, endpoint, params, ttl, func(ctx context.Context) ([]byte, error) {
		records, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(records)
	})
	if err != nil {
		return nil, err
	}

	var records []T
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// dateParam formats a date for use inside a cache key.
func dateParam(t time.Time) string {
	return t.Format("2006-01-02")
}
