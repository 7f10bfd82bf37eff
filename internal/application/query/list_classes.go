package query

import (
	"context"
	"fmt"
	"time"

	"github.com/sponte-hub/sponte-dashboard/internal/domain/school"
	"github.com/sponte-hub/sponte-dashboard/internal/domain/shared"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/cache"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/external/sponte"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST CLASSES
// ══════════════════════════════════════════════════════════════════════════════

// ListClassesQuery filters the class listing. Every filter is an equality
// match applied client-side over the cached full list; zero filters return
// the list unfiltered, in the order the API produced it.
type ListClassesQuery struct {
	// Status filters by lifecycle status: "active", "closed", or "forming".
	Status string

	// Modality filters by offering type.
	Modality string

	// Course filters by course name.
	Course string

	// Stage filters by stage name.
	Stage string

	// Teacher filters by assigned teacher name.
	Teacher string
}

// Validate checks the filter values.
func (q *ListClassesQuery) Validate() error {
	if q.Status != "" && !school.ClassStatus(q.Status).IsValid() {
		return shared.NewDomainError("query", "ListClasses", shared.ErrInvalidInput,
			fmt.Sprintf("unknown class status %q", q.Status))
	}
	return nil
}

// ListClassesResult is the filtered class listing.
type ListClassesResult struct {
	// Classes are the matching records, API order preserved.
	Classes []school.Class `json:"classes"`

	// Total is len(Classes).
	Total int `json:"total"`

	// GeneratedAt is when the result was assembled.
	GeneratedAt time.Time `json:"generated_at"`
}

// ListClassesHandler serves ListClassesQuery.
type ListClassesHandler struct {
	gateway Gateway
	cache   *cache.Cache
	ttl     time.Duration
}

// NewListClassesHandler creates the handler.
func NewListClassesHandler(gateway Gateway, c *cache.Cache, ttl time.Duration) *ListClassesHandler {
	return &ListClassesHandler{gateway: gateway, cache: c, ttl: ttl}
}

// Handle fetches the full class list through the cache and applies the
// query's equality filters. An empty result is valid, not an error.
func (h *ListClassesHandler) Handle(ctx context.Context, q ListClassesQuery) (*ListClassesResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	classes, err := fetchCached(ctx, h.cache, endpointClasses, nil, h.ttl,
		func(ctx context.Context) ([]school.Class, error) {
			return h.gateway.ListClasses(ctx, sponte.ClassesFilter{})
		})
	if err != nil {
		return nil, err
	}

	filtered := make([]school.Class, 0, len(classes))
	for _, c := range classes {
		if q.Status != "" && c.Status != school.ClassStatus(q.Status) {
			continue
		}
		if q.Modality != "" && c.Modality != q.Modality {
			continue
		}
		if q.Course != "" && c.Course != q.Course {
			continue
		}
		if q.Stage != "" && c.Stage != q.Stage {
			continue
		}
		if q.Teacher != "" && c.Teacher != q.Teacher {
			continue
		}
		filtered = append(filtered, c)
	}

	return &ListClassesResult{
		Classes:     filtered,
		Total:       len(filtered),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
