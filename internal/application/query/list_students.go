package query

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/sponte-hub/sponte-dashboard/internal/domain/school"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/cache"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/external/sponte"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST ACTIVE STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

// ListActiveStudentsResult is the active-enrollment student listing. Only
// students with active enrollment are surfaced to the UI.
type ListActiveStudentsResult struct {
	// Students are the active records, API order preserved.
	Students []school.Student `json:"students"`

	// Total is len(Students).
	Total int `json:"total"`

	// GeneratedAt is when the result was assembled.
	GeneratedAt time.Time `json:"generated_at"`
}

// ListActiveStudentsHandler serves the active student listing.
type ListActiveStudentsHandler struct {
	gateway Gateway
	cache   *cache.Cache
	ttl     time.Duration
}

// NewListActiveStudentsHandler creates the handler.
func NewListActiveStudentsHandler(gateway Gateway, c *cache.Cache, ttl time.Duration) *ListActiveStudentsHandler {
	return &ListActiveStudentsHandler{gateway: gateway, cache: c, ttl: ttl}
}

// Handle fetches active students through the cache. The upstream filter
// already narrows to active enrollment; the client-side check below guards
// against remote records whose status drifted inside the TTL window.
func (h *ListActiveStudentsHandler) Handle(ctx context.Context) (*ListActiveStudentsResult, error) {
	params := url.Values{}
	params.Set("situacao", strconv.Itoa(school.EnrollmentActive.Code()))

	students, err := fetchCached(ctx, h.cache, endpointStudents, params, h.ttl,
		func(ctx context.Context) ([]school.Student, error) {
			return h.gateway.ListStudents(ctx, sponte.StudentsFilter{Status: school.EnrollmentActive})
		})
	if err != nil {
		return nil, err
	}

	active := make([]school.Student, 0, len(students))
	for _, s := range students {
		if s.IsActive() {
			active = append(active, s)
		}
	}

	return &ListActiveStudentsResult{
		Students:    active,
		Total:       len(active),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
