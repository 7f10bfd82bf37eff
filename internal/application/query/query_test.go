package query

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sponte-hub/sponte-dashboard/internal/domain/finance"
	"github.com/sponte-hub/sponte-dashboard/internal/domain/school"
	"github.com/sponte-hub/sponte-dashboard/internal/domain/shared"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/cache"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/external/sponte"
)

// fakeGateway is an in-memory Gateway with per-operation call counters.
type fakeGateway struct {
	classes     []school.Class
	students    []school.Student
	lessons     []school.Lesson
	receivables []finance.Entry
	payables    []finance.Entry

	classCalls      int32
	studentCalls    int32
	lessonCalls     int32
	receivableCalls int32
	payableCalls    int32

	err error
}

func (g *fakeGateway) ListClasses(ctx context.Context, filter sponte.ClassesFilter) ([]school.Class, error) {
	atomic.AddInt32(&g.classCalls, 1)
	return g.classes, g.err
}

func (g *fakeGateway) ListStudents(ctx context.Context, filter sponte.StudentsFilter) ([]school.Student, error) {
	atomic.AddInt32(&g.studentCalls, 1)
	if g.err != nil {
		return nil, g.err
	}
	if filter.Status == "" {
		return g.students, nil
	}
	// The remote API applies the situacao filter server-side.
	matched := make([]school.Student, 0, len(g.students))
	for _, s := range g.students {
		if s.Status == filter.Status {
			matched = append(matched, s)
		}
	}
	return matched, nil
}

func (g *fakeGateway) ListLessons(ctx context.Context, filter sponte.LessonsFilter) ([]school.Lesson, error) {
	atomic.AddInt32(&g.lessonCalls, 1)
	return g.lessons, g.err
}

func (g *fakeGateway) ListReceivables(ctx context.Context, filter sponte.EntriesFilter) ([]finance.Entry, error) {
	atomic.AddInt32(&g.receivableCalls, 1)
	if g.err != nil {
		return nil, g.err
	}
	matched := make([]finance.Entry, 0, len(g.receivables))
	for _, e := range g.receivables {
		if filter.StudentID > 0 && e.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if !filter.DueFrom.IsZero() && e.DueDate.Before(filter.DueFrom) {
			continue
		}
		if !filter.DueTo.IsZero() && e.DueDate.After(filter.DueTo.AddDate(0, 0, 1)) {
			continue
		}
		if !filter.PaidFrom.IsZero() && e.PaymentDate.Before(filter.PaidFrom) {
			continue
		}
		if !filter.PaidTo.IsZero() && e.PaymentDate.After(filter.PaidTo.AddDate(0, 0, 1)) {
			continue
		}
		matched = append(matched, e)
	}
	return matched, nil
}

func (g *fakeGateway) ListPayables(ctx context.Context, filter sponte.EntriesFilter) ([]finance.Entry, error) {
	atomic.AddInt32(&g.payableCalls, 1)
	return g.payables, g.err
}

func newTestCache() *cache.Cache {
	return cache.New(cache.NewMemoryStore(), 60*time.Second, nil)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST CLASSES
// ══════════════════════════════════════════════════════════════════════════════

func TestListClasses_StatusFilterPreservesAPIOrder(t *testing.T) {
	gw := &fakeGateway{classes: []school.Class{
		{ID: 1, Name: "Go Basics", Status: school.ClassActive},
		{ID: 2, Name: "Closed 2024", Status: school.ClassClosed},
		{ID: 3, Name: "Go Advanced", Status: school.ClassActive},
		{ID: 4, Name: "Waiting List", Status: school.ClassForming},
	}}
	h := NewListClassesHandler(gw, newTestCache(), time.Minute)

	result, err := h.Handle(context.Background(), ListClassesQuery{Status: "active"})
	require.NoError(t, err)

	require.Len(t, result.Classes, 2)
	assert.Equal(t, 1, result.Classes[0].ID)
	assert.Equal(t, 3, result.Classes[1].ID)
	assert.Equal(t, 2, result.Total)
}

func TestListClasses_NoFilterReturnsAll(t *testing.T) {
	gw := &fakeGateway{classes: []school.Class{
		{ID: 1, Status: school.ClassActive},
		{ID: 2, Status: school.ClassClosed},
	}}
	h := NewListClassesHandler(gw, newTestCache(), time.Minute)

	result, err := h.Handle(context.Background(), ListClassesQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
}

func TestListClasses_UnknownStatusIsInvalidInput(t *testing.T) {
	gw := &fakeGateway{}
	h := NewListClassesHandler(gw, newTestCache(), time.Minute)

	_, err := h.Handle(context.Background(), ListClassesQuery{Status: "paused"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, int32(0), atomic.LoadInt32(&gw.classCalls))
}

func TestListClasses_SecondCallWithinTTLSkipsGateway(t *testing.T) {
	gw := &fakeGateway{classes: []school.Class{{ID: 1, Status: school.ClassActive}}}
	h := NewListClassesHandler(gw, newTestCache(), time.Minute)
	ctx := context.Background()

	_, err := h.Handle(ctx, ListClassesQuery{})
	require.NoError(t, err)
	_, err = h.Handle(ctx, ListClassesQuery{Status: "active"})
	require.NoError(t, err)

	// Both queries read the same cached full list.
	assert.Equal(t, int32(1), atomic.LoadInt32(&gw.classCalls))
}

func TestListClasses_GatewayErrorPassesThrough(t *testing.T) {
	gw := &fakeGateway{err: shared.NewDomainError("sponte", "ListClasses", shared.ErrUnavailable, "down")}
	h := NewListClassesHandler(gw, newTestCache(), time.Minute)

	_, err := h.Handle(context.Background(), ListClassesQuery{})
	assert.ErrorIs(t, err, shared.ErrUnavailable)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST ACTIVE STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

func TestListActiveStudents_OnlyActiveSurface(t *testing.T) {
	gw := &fakeGateway{students: []school.Student{
		{ID: 1, Name: "Ana", Status: school.EnrollmentActive},
		{ID: 2, Name: "Bruno", Status: school.EnrollmentInactive},
		{ID: 3, Name: "Clara", Status: school.EnrollmentActive},
		{ID: 4, Name: "Davi", Status: school.EnrollmentGraduated},
	}}
	h := NewListActiveStudentsHandler(gw, newTestCache(), time.Minute)

	result, err := h.Handle(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Students, 2)
	assert.Equal(t, "Ana", result.Students[0].Name)
	assert.Equal(t, "Clara", result.Students[1].Name)
	assert.Equal(t, 2, result.Total)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST LESSONS
// ══════════════════════════════════════════════════════════════════════════════

func TestListLessons_InvertedRangeFailsWithoutAPICall(t *testing.T) {
	gw := &fakeGateway{}
	h := NewListLessonsHandler(gw, newTestCache(), time.Minute)

	_, err := h.Handle(context.Background(), ListLessonsQuery{
		Range: shared.DateRange{From: date(2026, 8, 31), To: date(2026, 8, 1)},
	})

	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, int32(0), atomic.LoadInt32(&gw.lessonCalls))
}

func TestListLessons_RangeAndStatusFilter(t *testing.T) {
	gw := &fakeGateway{lessons: []school.Lesson{
		{ID: 1, Date: date(2026, 8, 3), Status: school.LessonConfirmed},
		{ID: 2, Date: date(2026, 8, 10), Status: school.LessonPending},
		{ID: 3, Date: date(2026, 8, 31), Status: school.LessonConfirmed},
		{ID: 4, Date: date(2026, 9, 1), Status: school.LessonConfirmed},
	}}
	h := NewListLessonsHandler(gw, newTestCache(), time.Minute)
	rng := shared.DateRange{From: date(2026, 8, 1), To: date(2026, 8, 31)}

	result, err := h.Handle(context.Background(), ListLessonsQuery{Range: rng})
	require.NoError(t, err)

	// Both endpoints of the range are inclusive; September is out.
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Confirmed)
	assert.Equal(t, 1, result.Pending)

	confirmed, err := h.Handle(context.Background(), ListLessonsQuery{Range: rng, Status: "confirmed"})
	require.NoError(t, err)
	require.Len(t, confirmed.Lessons, 2)
	assert.Equal(t, 1, confirmed.Lessons[0].ID)
	assert.Equal(t, 3, confirmed.Lessons[1].ID)
}

func TestListLessons_UnknownStatusIsInvalidInput(t *testing.T) {
	gw := &fakeGateway{}
	h := NewListLessonsHandler(gw, newTestCache(), time.Minute)

	_, err := h.Handle(context.Background(), ListLessonsQuery{
		Range:  shared.DateRange{From: date(2026, 8, 1), To: date(2026, 8, 31)},
		Status: "maybe",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST CLASS FINANCIALS
// ══════════════════════════════════════════════════════════════════════════════

func TestListClassFinancials_UnknownClassIsEmptyNotError(t *testing.T) {
	gw := &fakeGateway{classes: []school.Class{{ID: 1, Name: "Known"}}}
	h := NewListClassFinancialsHandler(gw, newTestCache(), time.Minute)

	result, err := h.Handle(context.Background(), ListClassFinancialsQuery{ClassID: 999})
	require.NoError(t, err)

	assert.Empty(t, result.Students)
	assert.Zero(t, result.Total)
	assert.Equal(t, int32(0), atomic.LoadInt32(&gw.receivableCalls))
}

func TestListClassFinancials_SumsPaidAndPendingPerStudent(t *testing.T) {
	period := shared.DateRange{From: date(2026, 8, 1), To: date(2026, 8, 31)}
	gw := &fakeGateway{
		classes: []school.Class{
			{ID: 1, Name: "Robotica Kids A", StudentIDs: []int{7, 9}},
		},
		receivables: []finance.Entry{
			{ID: 100, StudentID: 7, StudentName: "Pedro", Amount: 450,
				DueDate: date(2026, 8, 10), Status: finance.PaymentPaid},
			{ID: 101, StudentID: 7, Amount: 450,
				DueDate: date(2026, 8, 20), Status: finance.PaymentPending},
			{ID: 102, StudentID: 9, StudentName: "Lia", Amount: 300,
				DueDate: date(2026, 8, 10), Status: finance.PaymentPending},
		},
	}
	h := NewListClassFinancialsHandler(gw, newTestCache(), time.Minute)

	result, err := h.Handle(context.Background(), ListClassFinancialsQuery{ClassID: 1, Period: period})
	require.NoError(t, err)

	assert.Equal(t, "Robotica Kids A", result.ClassName)
	require.Len(t, result.Students, 2)

	pedro := result.Students[0]
	assert.Equal(t, 7, pedro.StudentID)
	assert.Equal(t, "Pedro", pedro.Name)
	assert.Equal(t, 450.0, pedro.Paid)
	assert.Equal(t, 450.0, pedro.Pending)

	lia := result.Students[1]
	assert.Equal(t, 300.0, lia.Pending)

	assert.Equal(t, 450.0, result.TotalPaid)
	assert.Equal(t, 750.0, result.TotalPending)
	assert.Equal(t, 1200.0, result.Total)
}

func TestListClassFinancials_InstallmentsWinOverEntryAmount(t *testing.T) {
	period := shared.DateRange{From: date(2026, 8, 1), To: date(2026, 8, 31)}
	gw := &fakeGateway{
		classes: []school.Class{{ID: 1, StudentIDs: []int{7}}},
		receivables: []finance.Entry{
			{ID: 100, StudentID: 7, Amount: 900, DueDate: date(2026, 8, 10),
				Status: finance.PaymentPending,
				Installments: []finance.Installment{
					{Number: 1, Amount: 450, Status: finance.PaymentPaid},
					{Number: 2, Amount: 450, Status: finance.PaymentPending},
				}},
		},
	}
	h := NewListClassFinancialsHandler(gw, newTestCache(), time.Minute)

	result, err := h.Handle(context.Background(), ListClassFinancialsQuery{ClassID: 1, Period: period})
	require.NoError(t, err)

	require.Len(t, result.Students, 1)
	assert.Equal(t, 450.0, result.Students[0].Paid)
	assert.Equal(t, 450.0, result.Students[0].Pending)
}

func TestListClassFinancials_InvalidID(t *testing.T) {
	h := NewListClassFinancialsHandler(&fakeGateway{}, newTestCache(), time.Minute)

	_, err := h.Handle(context.Background(), ListClassFinancialsQuery{ClassID: 0})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

// ══════════════════════════════════════════════════════════════════════════════
// GET CASH FLOW
// ══════════════════════════════════════════════════════════════════════════════

func TestGetCashFlow_DailyBucketsIncludeZeroDays(t *testing.T) {
	gw := &fakeGateway{
		receivables: []finance.Entry{
			{ID: 1, Amount: 1000, DueDate: date(2026, 8, 1)},
			{ID: 2, Amount: 500, DueDate: date(2026, 8, 3)},
		},
		payables: []finance.Entry{
			{ID: 3, Amount: 200, DueDate: date(2026, 8, 3)},
		},
	}
	h := NewGetCashFlowHandler(gw, newTestCache(), time.Minute)

	result, err := h.Handle(context.Background(), GetCashFlowQuery{
		Range: shared.DateRange{From: date(2026, 8, 1), To: date(2026, 8, 3)},
	})
	require.NoError(t, err)

	// Three days, one row each, the empty middle day included.
	require.Len(t, result.Rows, 3)
	assert.Equal(t, 1000.0, result.Rows[0].Income)
	assert.Zero(t, result.Rows[1].Income)
	assert.Zero(t, result.Rows[1].Expenses)
	assert.Equal(t, 500.0, result.Rows[2].Income)
	assert.Equal(t, 200.0, result.Rows[2].Expenses)
	assert.Equal(t, 300.0, result.Rows[2].Balance)

	assert.Equal(t, 1500.0, result.TotalIncome)
	assert.Equal(t, 200.0, result.TotalExpenses)
	assert.Equal(t, 1300.0, result.TotalBalance)
}

func TestGetCashFlow_MonthlyGrouping(t *testing.T) {
	gw := &fakeGateway{
		receivables: []finance.Entry{
			{ID: 1, Amount: 100, DueDate: date(2026, 7, 15)},
			{ID: 2, Amount: 200, DueDate: date(2026, 8, 15)},
		},
	}
	h := NewGetCashFlowHandler(gw, newTestCache(), time.Minute)

	result, err := h.Handle(context.Background(), GetCashFlowQuery{
		Range:   shared.DateRange{From: date(2026, 7, 1), To: date(2026, 8, 31)},
		GroupBy: finance.GroupByMonth,
	})
	require.NoError(t, err)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "07/2026", result.Rows[0].Period)
	assert.Equal(t, 100.0, result.Rows[0].Income)
	assert.Equal(t, "08/2026", result.Rows[1].Period)
	assert.Equal(t, 200.0, result.Rows[1].Income)
}

func TestGetCashFlow_UnknownGrouping(t *testing.T) {
	h := NewGetCashFlowHandler(&fakeGateway{}, newTestCache(), time.Minute)

	_, err := h.Handle(context.Background(), GetCashFlowQuery{
		Range:   shared.DateRange{From: date(2026, 8, 1), To: date(2026, 8, 2)},
		GroupBy: "quarter",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

// ══════════════════════════════════════════════════════════════════════════════
// GET FINANCIAL SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

func TestGetFinancialSummary_RatesAndBuckets(t *testing.T) {
	now := date(2026, 8, 23)
	gw := &fakeGateway{
		receivables: []finance.Entry{
			// Settled in August.
			{ID: 1, Amount: 600, DueDate: date(2026, 8, 5),
				PaymentDate: date(2026, 8, 5), Status: finance.PaymentPaid},
			// Due in August, 13 days overdue at the reference date.
			{ID: 2, Amount: 400, DueDate: date(2026, 8, 10), Status: finance.PaymentPending},
			// Old pending entry from May, deep in the overdue buckets.
			{ID: 3, Amount: 1000, DueDate: date(2026, 5, 10), Status: finance.PaymentPending},
		},
	}
	h := NewGetFinancialSummaryHandler(gw, newTestCache(), time.Minute)
	h.now = func() time.Time { return now }

	summary, err := h.Handle(context.Background(), GetFinancialSummaryQuery{Month: 8, Year: 2026})
	require.NoError(t, err)

	assert.Equal(t, "08/2026", summary.Period)
	assert.Equal(t, 600.0, summary.TotalReceived)
	assert.Equal(t, 1000.0, summary.TotalExpected) // entries 1 and 2 fall due in August
	assert.Equal(t, 400.0, summary.TotalPending)

	assert.Equal(t, 1400.0, summary.TotalOverdue)
	assert.Equal(t, 400.0, summary.TotalOverdueInMonth)
	assert.Equal(t, 2, summary.OverdueCount)

	assert.InDelta(t, 140.0, summary.DelinquencyRate, 0.001)
	assert.InDelta(t, 60.0, summary.CollectionRate, 0.001)

	require.Len(t, summary.OverdueBuckets, 5)
	// Entry 2 is 13 days late, entry 3 is 105 days late.
	assert.Equal(t, 1, summary.OverdueBuckets[0].Count)
	assert.Equal(t, 400.0, summary.OverdueBuckets[0].Total)
	assert.Equal(t, 1, summary.OverdueBuckets[4].Count)
	assert.Equal(t, 1000.0, summary.OverdueBuckets[4].Total)
	// Interest accrues at 1% per month, pro-rated per day.
	assert.InDelta(t, 1000+1000*0.01/30*105, summary.OverdueBuckets[4].TotalWithInterest, 0.001)
}

func TestGetFinancialSummary_InvalidMonth(t *testing.T) {
	h := NewGetFinancialSummaryHandler(&fakeGateway{}, newTestCache(), time.Minute)

	_, err := h.Handle(context.Background(), GetFinancialSummaryQuery{Month: 13, Year: 2026})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestGetFinancialSummary_ZeroExpectedLeavesRatesAtZero(t *testing.T) {
	h := NewGetFinancialSummaryHandler(&fakeGateway{}, newTestCache(), time.Minute)

	summary, err := h.Handle(context.Background(), GetFinancialSummaryQuery{Month: 1, Year: 2026})
	require.NoError(t, err)

	assert.Zero(t, summary.DelinquencyRate)
	assert.Zero(t, summary.CollectionRate)
}
