// Package finance contains the domain model for Sponte financial records:
// receivable and payable entries, installments, and the derived cash-flow
// and monthly-summary reports the dashboard renders.
package finance

import (
	"time"
)

// EntryKind distinguishes receivables from payables.
type EntryKind string

const (
	// KindReceivable - money owed to the school (contas a receber).
	KindReceivable EntryKind = "receivable"

	// KindPayable - money the school owes (contas a pagar).
	KindPayable EntryKind = "payable"
)

// PaymentStatus is the settlement state of an entry or installment.
type PaymentStatus string

const (
	// PaymentPending - not settled yet (Sponte code 0).
	PaymentPending PaymentStatus = "pending"

	// PaymentPaid - settled (Sponte code 1).
	PaymentPaid PaymentStatus = "paid"

	// PaymentStatusUnknown - unrecognized remote code.
	PaymentStatusUnknown PaymentStatus = "unknown"
)

// PaymentStatusFromCode maps the Sponte situacao code to a PaymentStatus.
func PaymentStatusFromCode(code int) PaymentStatus {
	switch code {
	case 0:
		return PaymentPending
	case 1:
		return PaymentPaid
	default:
		return PaymentStatusUnknown
	}
}

// Installment is one parcela of a financial entry. Amounts can be negative:
// the remote system records adjustments and reversals as negative values,
// so no non-negativity invariant is enforced here.
type Installment struct {
	// Number is the 1-based installment index within the entry.
	Number int `json:"number"`

	// Amount is the installment value in BRL.
	Amount float64 `json:"amount"`

	// DueDate is when the installment falls due.
	DueDate time.Time `json:"due_date"`

	// PaymentDate is when it was settled; zero while pending.
	PaymentDate time.Time `json:"payment_date,omitempty"`

	// Status is paid or pending.
	Status PaymentStatus `json:"status"`
}

// DaysOverdue returns how many days the installment is past due at the
// reference time, or 0 when not overdue or already paid.
func (i *Installment) DaysOverdue(now time.Time) int {
	if i.Status == PaymentPaid || i.DueDate.IsZero() {
		return 0
	}
	if !i.DueDate.Before(now) {
		return 0
	}
	return int(now.Sub(i.DueDate).Hours() / 24)
}

// Entry is a Sponte financial entry (conta) snapshot.
type Entry struct {
	// ID is the Sponte entry identifier.
	ID int `json:"id"`

	// Kind is receivable or payable.
	Kind EntryKind `json:"kind"`

	// StudentID links the entry to a student; 0 for non-student entries.
	StudentID int `json:"student_id,omitempty"`

	// StudentName is the debtor's name as reported by the API.
	StudentName string `json:"student_name,omitempty"`

	// Description is the free-text entry description.
	Description string `json:"description,omitempty"`

	// Amount is the total entry value in BRL.
	Amount float64 `json:"amount"`

	// DueDate is the entry due date.
	DueDate time.Time `json:"due_date,omitempty"`

	// PaymentDate is the settlement date; zero while pending.
	PaymentDate time.Time `json:"payment_date,omitempty"`

	// Status is paid or pending.
	Status PaymentStatus `json:"status"`

	// Installments are the entry's parcelas, when the API returns them.
	Installments []Installment `json:"installments,omitempty"`
}

// InstallmentTotal sums installment amounts, falling back to Amount when
// the API returned no installment breakdown.
func (e *Entry) InstallmentTotal() float64 {
	if len(e.Installments) == 0 {
		return e.Amount
	}
	var total float64
	for _, inst := range e.Installments {
		total += inst.Amount
	}
	return total
}

// ══════════════════════════════════════════════════════════════════════════════
// DERIVED REPORTS
// ══════════════════════════════════════════════════════════════════════════════

// CashFlowGrouping selects the aggregation bucket for cash-flow rows.
type CashFlowGrouping string

const (
	GroupByDay   CashFlowGrouping = "day"
	GroupByWeek  CashFlowGrouping = "week"
	GroupByMonth CashFlowGrouping = "month"
)

// IsValid reports whether the grouping is one of the supported values.
func (g CashFlowGrouping) IsValid() bool {
	return g == GroupByDay || g == GroupByWeek || g == GroupByMonth
}

// CashFlowRow is one aggregated period of the cash-flow report.
type CashFlowRow struct {
	// Period is the human-readable bucket label, e.g. "02/01/2026",
	// "Week 5 of 2026", or "01/2026".
	Period string `json:"period"`

	// Income is the sum of receivables due in the period.
	Income float64 `json:"income"`

	// Expenses is the sum of payables due in the period.
	Expenses float64 `json:"expenses"`

	// Balance is Income minus Expenses.
	Balance float64 `json:"balance"`
}

// OverdueBucket groups overdue installments by age.
type OverdueBucket struct {
	// Label names the age band, e.g. "up_to_15_days".
	Label string `json:"label"`

	// Count is the number of overdue installments in the band.
	Count int `json:"count"`

	// Total is the face value of the band's installments.
	Total float64 `json:"total"`

	// TotalWithInterest adds estimated late interest (1% per month,
	// pro-rated per day, matching the dashboard's collection estimate).
	TotalWithInterest float64 `json:"total_with_interest"`
}

// Summary is the monthly financial summary the dashboard's financial page
// renders.
type Summary struct {
	// Period is the summarized month in "MM/YYYY" form.
	Period string `json:"period"`

	// TotalReceived is the amount settled inside the month.
	TotalReceived float64 `json:"total_received"`

	// TotalExpected is the amount due inside the month (paid and pending).
	TotalExpected float64 `json:"total_expected"`

	// TotalPending is the month's amount still unsettled.
	TotalPending float64 `json:"total_pending"`

	// TotalOverdue is the overall overdue amount across all months.
	TotalOverdue float64 `json:"total_overdue"`

	// TotalOverdueInMonth is the overdue amount that fell due this month.
	TotalOverdueInMonth float64 `json:"total_overdue_in_month"`

	// OverdueCount is the number of overdue installments overall.
	OverdueCount int `json:"overdue_count"`

	// DelinquencyRate is TotalOverdue / TotalExpected, in percent.
	DelinquencyRate float64 `json:"delinquency_rate"`

	// CollectionRate is TotalReceived / TotalExpected, in percent.
	CollectionRate float64 `json:"collection_rate"`

	// OverdueBuckets breaks overdue installments into age bands.
	OverdueBuckets []OverdueBucket `json:"overdue_buckets,omitempty"`
}
