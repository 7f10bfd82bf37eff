package query

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sponte-hub/sponte-dashboard/internal/domain/finance"
	"github.com/sponte-hub/sponte-dashboard/internal/domain/shared"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/cache"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/external/sponte"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CASH FLOW
// ══════════════════════════════════════════════════════════════════════════════

// GetCashFlowQuery builds the cash-flow report: receivables against
// payables due inside a period, aggregated by day, week, or month.
type GetCashFlowQuery struct {
	// Range bounds the due dates considered, both endpoints included.
	Range shared.DateRange

	// GroupBy selects the aggregation bucket. Empty defaults to day.
	GroupBy finance.CashFlowGrouping
}

// Validate checks the range and grouping.
func (q *GetCashFlowQuery) Validate() error {
	if err := q.Range.Validate(); err != nil {
		return err
	}
	if q.GroupBy == "" {
		q.GroupBy = finance.GroupByDay
	}
	if !q.GroupBy.IsValid() {
		return shared.NewDomainError("query", "GetCashFlow", shared.ErrInvalidInput,
			fmt.Sprintf("unknown grouping %q", q.GroupBy))
	}
	return nil
}

// GetCashFlowResult is the aggregated cash-flow report.
type GetCashFlowResult struct {
	// Rows are the aggregation buckets in chronological order. Every bucket
	// of the range appears, including zero-movement ones.
	Rows []finance.CashFlowRow `json:"rows"`

	// TotalIncome, TotalExpenses, and TotalBalance aggregate the period.
	TotalIncome   float64 `json:"total_income"`
	TotalExpenses float64 `json:"total_expenses"`
	TotalBalance  float64 `json:"total_balance"`

	// GeneratedAt is when the result was assembled.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetCashFlowHandler serves GetCashFlowQuery.
type GetCashFlowHandler struct {
	gateway Gateway
	cache   *cache.Cache
	ttl     time.Duration
}

// NewGetCashFlowHandler creates the handler.
func NewGetCashFlowHandler(gateway Gateway, c *cache.Cache, ttl time.Duration) *GetCashFlowHandler {
	return &GetCashFlowHandler{gateway: gateway, cache: c, ttl: ttl}
}

// Handle fetches receivables and payables due in the range through the
// cache, buckets them per day, then folds days into the requested grouping.
func (h *GetCashFlowHandler) Handle(ctx context.Context, q GetCashFlowQuery) (*GetCashFlowResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("dataVencimentoInicio", dateParam(q.Range.From))
	params.Set("dataVencimentoFim", dateParam(q.Range.To))

	receivables, err := fetchCached(ctx, h.cache, endpointReceivables, params, h.ttl,
		func(ctx context.Context) ([]finance.Entry, error) {
			return h.gateway.ListReceivables(ctx, sponte.EntriesFilter{
				DueFrom: q.Range.From,
				DueTo:   q.Range.To,
			})
		})
	if err != nil {
		return nil, err
	}

	payables, err := fetchCached(ctx, h.cache, endpointPayables, params, h.ttl,
		func(ctx context.Context) ([]finance.Entry, error) {
			return h.gateway.ListPayables(ctx, sponte.EntriesFilter{
				DueFrom: q.Range.From,
				DueTo:   q.Range.To,
			})
		})
	if err != nil {
		return nil, err
	}

	income := make(map[string]float64)
	expenses := make(map[string]float64)
	for _, e := range receivables {
		if e.DueDate.IsZero() || !q.Range.Contains(e.DueDate) {
			continue
		}
		income[dateParam(e.DueDate)] += e.Amount
	}
	for _, e := range payables {
		if e.DueDate.IsZero() || !q.Range.Contains(e.DueDate) {
			continue
		}
		expenses[dateParam(e.DueDate)] += e.Amount
	}

	result := &GetCashFlowResult{GeneratedAt: time.Now().UTC()}

	// Walk every day of the range so zero-movement buckets still render.
	var rows []finance.CashFlowRow
	var current *finance.CashFlowRow
	var currentBucket string
	for day := q.Range.From; !day.After(q.Range.To); day = day.AddDate(0, 0, 1) {
		bucket, label := bucketFor(day, q.GroupBy)
		if current == nil || bucket != currentBucket {
			rows = append(rows, finance.CashFlowRow{Period: label})
			current = &rows[len(rows)-1]
			currentBucket = bucket
		}
		key := dateParam(day)
		current.Income += income[key]
		current.Expenses += expenses[key]
	}
	for i := range rows {
		rows[i].Balance = rows[i].Income - rows[i].Expenses
		result.TotalIncome += rows[i].Income
		result.TotalExpenses += rows[i].Expenses
	}
	result.TotalBalance = result.TotalIncome - result.TotalExpenses
	result.Rows = rows

	return result, nil
}

// bucketFor returns the grouping key and display label for a day.
func bucketFor(day time.Time, group finance.CashFlowGrouping) (key, label string) {
	switch group {
	case finance.GroupByWeek:
		year, week := day.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week), fmt.Sprintf("Week %d of %d", week, year)
	case finance.GroupByMonth:
		return day.Format("2006-01"), day.Format("01/2006")
	default:
		return day.Format("2006-01-02"), day.Format("02/01/2006")
	}
}
