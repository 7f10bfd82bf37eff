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
// GET FINANCIAL SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// Overdue age bands, in days. Installments older than the last band fall
// into the "above 90 days" bucket.
var overdueBands = []struct {
	label string
	from  int
	to    int
}{
	{"up_to_15_days", 1, 15},
	{"16_to_30_days", 16, 30},
	{"31_to_60_days", 31, 60},
	{"61_to_90_days", 61, 90},
	{"above_90_days", 91, 1 << 30},
}

// monthlyInterestRate is the estimated late-payment interest used for the
// collection projection: 1% per month, pro-rated per day.
const monthlyInterestRate = 0.01

// GetFinancialSummaryQuery summarizes one calendar month.
type GetFinancialSummaryQuery struct {
	// Month is 1-12. Zero means the current month.
	Month int

	// Year is the four-digit year. Zero means the current year.
	Year int
}

// Validate checks the month and year, defaulting zero values to now.
func (q *GetFinancialSummaryQuery) Validate() error {
	now := time.Now()
	if q.Month == 0 {
		q.Month = int(now.Month())
	}
	if q.Year == 0 {
		q.Year = now.Year()
	}
	if q.Month < 1 || q.Month > 12 {
		return shared.NewDomainError("query", "GetFinancialSummary", shared.ErrInvalidInput,
			fmt.Sprintf("month must be between 1 and 12, got %d", q.Month))
	}
	if q.Year < 2000 {
		return shared.NewDomainError("query", "GetFinancialSummary", shared.ErrInvalidInput,
			fmt.Sprintf("year %d is out of range", q.Year))
	}
	return nil
}

// GetFinancialSummaryHandler serves GetFinancialSummaryQuery.
type GetFinancialSummaryHandler struct {
	gateway Gateway
	cache   *cache.Cache
	ttl     time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewGetFinancialSummaryHandler creates the handler.
func NewGetFinancialSummaryHandler(gateway Gateway, c *cache.Cache, ttl time.Duration) *GetFinancialSummaryHandler {
	return &GetFinancialSummaryHandler{gateway: gateway, cache: c, ttl: ttl, now: time.Now}
}

// Handle assembles the month's financial summary: received vs expected vs
// pending amounts, overall overdue totals, age buckets, and the derived
// delinquency and collection rates.
func (h *GetFinancialSummaryHandler) Handle(ctx context.Context, q GetFinancialSummaryQuery) (*finance.Summary, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	monthStart := time.Date(q.Year, time.Month(q.Month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	received, err := h.receivedInMonth(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	dueInMonth, err := h.dueInMonth(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	overdue, err := h.allPending(ctx)
	if err != nil {
		return nil, err
	}

	summary := &finance.Summary{
		Period:        fmt.Sprintf("%02d/%d", q.Month, q.Year),
		TotalReceived: received,
	}

	for _, e := range dueInMonth {
		summary.TotalExpected += e.Amount
		if e.Status == finance.PaymentPending {
			summary.TotalPending += e.Amount
		}
	}

	now := h.now()
	buckets := make([]finance.OverdueBucket, len(overdueBands))
	for i, band := range overdueBands {
		buckets[i].Label = band.label
	}
	monthPrefix := monthStart.Format("2006-01")
	for _, e := range overdue {
		if e.Amount <= 0 || e.DueDate.IsZero() || !e.DueDate.Before(now) {
			continue
		}
		days := int(now.Sub(e.DueDate).Hours() / 24)
		if days < 1 {
			continue
		}

		summary.TotalOverdue += e.Amount
		summary.OverdueCount++
		if e.DueDate.Format("2006-01") == monthPrefix {
			summary.TotalOverdueInMonth += e.Amount
		}

		interest := e.Amount * monthlyInterestRate / 30 * float64(days)
		for i, band := range overdueBands {
			if days >= band.from && days <= band.to {
				buckets[i].Count++
				buckets[i].Total += e.Amount
				buckets[i].TotalWithInterest += e.Amount + interest
				break
			}
		}
	}
	summary.OverdueBuckets = buckets

	if summary.TotalExpected > 0 {
		summary.DelinquencyRate = summary.TotalOverdue / summary.TotalExpected * 100
		summary.CollectionRate = summary.TotalReceived / summary.TotalExpected * 100
	}

	return summary, nil
}

// receivedInMonth sums receivables settled inside the month.
func (h *GetFinancialSummaryHandler) receivedInMonth(ctx context.Context, from, to time.Time) (float64, error) {
	params := url.Values{}
	params.Set("situacao", "1")
	params.Set("dataPagamentoInicio", dateParam(from))
	params.Set("dataPagamentoFim", dateParam(to))

	entries, err := fetchCached(ctx, h.cache, endpointReceivables, params, h.ttl,
		func(ctx context.Context) ([]finance.Entry, error) {
			return h.gateway.ListReceivables(ctx, sponte.EntriesFilter{
				Status:   finance.PaymentPaid,
				PaidFrom: from,
				PaidTo:   to,
			})
		})
	if err != nil {
		return 0, err
	}

	var total float64
	for _, e := range entries {
		total += e.Amount
	}
	return total, nil
}

// dueInMonth fetches every receivable falling due inside the month.
func (h *GetFinancialSummaryHandler) dueInMonth(ctx context.Context, from, to time.Time) ([]finance.Entry, error) {
	params := url.Values{}
	params.Set("dataVencimentoInicio", dateParam(from))
	params.Set("dataVencimentoFim", dateParam(to))

	return fetchCached(ctx, h.cache, endpointReceivables, params, h.ttl,
		func(ctx context.Context) ([]finance.Entry, error) {
			return h.gateway.ListReceivables(ctx, sponte.EntriesFilter{
				DueFrom: from,
				DueTo:   to,
			})
		})
}

// allPending fetches every pending receivable regardless of due date; the
// overdue classification happens client-side against the current time.
func (h *GetFinancialSummaryHandler) allPending(ctx context.Context) ([]finance.Entry, error) {
	params := url.Values{}
	params.Set("situacao", "0")

	return fetchCached(ctx, h.cache, endpointReceivables, params, h.ttl,
		func(ctx context.Context) ([]finance.Entry, error) {
			return h.gateway.ListReceivables(ctx, sponte.EntriesFilter{
				Status: finance.PaymentPending,
			})
		})
}
