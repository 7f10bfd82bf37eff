package query

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/sponte-hub/sponte-dashboard/internal/domain/finance"
	"github.com/sponte-hub/sponte-dashboard/internal/domain/school"
	"github.com/sponte-hub/sponte-dashboard/internal/domain/shared"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/cache"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/external/sponte"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST CLASS FINANCIALS
// ══════════════════════════════════════════════════════════════════════════════

// ListClassFinancialsQuery selects the financial entries behind one class:
// the receivables of every student enrolled in it, inside a period.
type ListClassFinancialsQuery struct {
	// ClassID identifies the class. An unknown id yields an empty result,
	// not an error — that is the remote service's convention.
	ClassID int

	// Period bounds the due dates considered. Zero means the current month.
	Period shared.DateRange
}

// Validate checks the query.
func (q *ListClassFinancialsQuery) Validate() error {
	if q.ClassID <= 0 {
		return shared.NewDomainError("query", "ListClassFinancials", shared.ErrInvalidInput,
			"class id must be positive")
	}
	if !q.Period.From.IsZero() || !q.Period.To.IsZero() {
		return q.Period.Validate()
	}
	return nil
}

// StudentFinancials is one student's slice of the class total.
type StudentFinancials struct {
	// StudentID identifies the student.
	StudentID int `json:"student_id"`

	// Name is the student's name when the roster carries it.
	Name string `json:"name,omitempty"`

	// Paid is the settled amount in the period.
	Paid float64 `json:"paid"`

	// Pending is the unsettled amount in the period.
	Pending float64 `json:"pending"`

	// Entries are the underlying financial entries.
	Entries []finance.Entry `json:"entries,omitempty"`
}

// Total returns the student's paid plus pending amount.
func (s StudentFinancials) Total() float64 {
	return s.Paid + s.Pending
}

// ListClassFinancialsResult is the per-class financial breakdown.
type ListClassFinancialsResult struct {
	// ClassID and ClassName identify the class.
	ClassID   int    `json:"class_id"`
	ClassName string `json:"class_name,omitempty"`

	// Period is the due-date window the totals cover.
	Period shared.DateRange `json:"period"`

	// Students carries one row per enrolled student.
	Students []StudentFinancials `json:"students"`

	// TotalPaid, TotalPending, and Total aggregate the class.
	TotalPaid    float64 `json:"total_paid"`
	TotalPending float64 `json:"total_pending"`
	Total        float64 `json:"total"`

	// GeneratedAt is when the result was assembled.
	GeneratedAt time.Time `json:"generated_at"`
}

// ListClassFinancialsHandler serves ListClassFinancialsQuery.
type ListClassFinancialsHandler struct {
	gateway Gateway
	cache   *cache.Cache
	ttl     time.Duration
}

// NewListClassFinancialsHandler creates the handler.
func NewListClassFinancialsHandler(gateway Gateway, c *cache.Cache, ttl time.Duration) *ListClassFinancialsHandler {
	return &ListClassFinancialsHandler{gateway: gateway, cache: c, ttl: ttl}
}

// Handle resolves the class from the cached class list, then sums each
// enrolled student's paid and pending receivables for the period.
func (h *ListClassFinancialsHandler) Handle(ctx context.Context, q ListClassFinancialsQuery) (*ListClassFinancialsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	period := q.Period
	if period.From.IsZero() && period.To.IsZero() {
		period = shared.CurrentMonth(time.Now())
	}

	classes, err := fetchCached(ctx, h.cache, endpointClasses, nil, h.ttl,
		func(ctx context.Context) ([]school.Class, error) {
			return h.gateway.ListClasses(ctx, sponte.ClassesFilter{})
		})
	if err != nil {
		return nil, err
	}

	result := &ListClassFinancialsResult{
		ClassID:     q.ClassID,
		Period:      period,
		Students:    []StudentFinancials{},
		GeneratedAt: time.Now().UTC(),
	}

	var class *school.Class
	for i := range classes {
		if classes[i].ID == q.ClassID {
			class = &classes[i]
			break
		}
	}
	if class == nil {
		// Unknown class id: empty result, not an error.
		return result, nil
	}
	result.ClassName = class.Name

	for _, studentID := range class.StudentIDs {
		row, err := h.studentFinancials(ctx, studentID, period)
		if err != nil {
			return nil, err
		}
		result.Students = append(result.Students, row)
		result.TotalPaid += row.Paid
		result.TotalPending += row.Pending
	}
	result.Total = result.TotalPaid + result.TotalPending

	return result, nil
}

// studentFinancials fetches one student's receivables in the period and
// splits them into paid and pending totals.
func (h *ListClassFinancialsHandler) studentFinancials(ctx context.Context, studentID int, period shared.DateRange) (StudentFinancials, error) {
	params := url.Values{}
	params.Set("alunoID", strconv.Itoa(studentID))
	params.Set("dataVencimentoInicio", dateParam(period.From))
	params.Set("dataVencimentoFim", dateParam(period.To))

	entries, err := fetchCached(ctx, h.cache, endpointReceivables, params, h.ttl,
		func(ctx context.Context) ([]finance.Entry, error) {
			return h.gateway.ListReceivables(ctx, sponte.EntriesFilter{
				StudentID: studentID,
				DueFrom:   period.From,
				DueTo:     period.To,
			})
		})
	if err != nil {
		return StudentFinancials{}, err
	}

	row := StudentFinancials{StudentID: studentID, Entries: entries}
	for _, e := range entries {
		if row.Name == "" {
			row.Name = e.StudentName
		}
		// Installment values are the source of truth when present.
		if len(e.Installments) > 0 {
			for _, inst := range e.Installments {
				switch inst.Status {
				case finance.PaymentPaid:
					row.Paid += inst.Amount
				default:
					row.Pending += inst.Amount
				}
			}
			continue
		}
		switch e.Status {
		case finance.PaymentPaid:
			row.Paid += e.Amount
		default:
			row.Pending += e.Amount
		}
	}
	return row, nil
}
