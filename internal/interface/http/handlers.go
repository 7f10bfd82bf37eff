package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sponte-hub/sponte-dashboard/internal/application/query"
	"github.com/sponte-hub/sponte-dashboard/internal/domain/finance"
	"github.com/sponte-hub/sponte-dashboard/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// Response is the uniform JSON envelope every endpoint renders.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Error: message})
}

// renderError maps the domain error taxonomy onto HTTP statuses. Upstream
// failures surface as an actionable message rather than a crash.
func renderError(c *gin.Context, logger *slog.Logger, err error) {
	logger.Error("query failed",
		"path", c.Request.URL.Path,
		"request_id", c.GetString("request_id"),
		"error", err,
	)

	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrAuthentication):
		fail(c, http.StatusUnauthorized, "authentication with the school service failed, check credentials")
	case errors.Is(err, shared.ErrBadRequest):
		fail(c, http.StatusUnprocessableEntity, "the school service rejected the request")
	case errors.Is(err, shared.ErrTimeout):
		fail(c, http.StatusGatewayTimeout, "the school service timed out, try again")
	case errors.Is(err, shared.ErrUnavailable):
		fail(c, http.StatusServiceUnavailable, "the school service is unavailable, try again")
	default:
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type handlers struct {
	queries Queries
	logger  *slog.Logger
}

func (h *handlers) health(c *gin.Context) {
	ok(c, gin.H{"status": "healthy", "time": time.Now().UTC()})
}

// listClasses serves GET /api/v1/classes.
// Filters: status, modality, course, stage, teacher.
func (h *handlers) listClasses(c *gin.Context) {
	q := query.ListClassesQuery{
		Status:   c.Query("status"),
		Modality: c.Query("modality"),
		Course:   c.Query("course"),
		Stage:    c.Query("stage"),
		Teacher:  c.Query("teacher"),
	}
	result, err := h.queries.ListClasses.Handle(c.Request.Context(), q)
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	ok(c, result)
}

// listActiveStudents serves GET /api/v1/students.
func (h *handlers) listActiveStudents(c *gin.Context) {
	result, err := h.queries.ListActiveStudents.Handle(c.Request.Context())
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	ok(c, result)
}

// listLessons serves GET /api/v1/lessons.
// Filters: from, to (YYYY-MM-DD, required), status, class_id.
func (h *handlers) listLessons(c *gin.Context) {
	rng, err := parseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	classID, err := parseIntParam(c.Query("class_id"), "class_id")
	if err != nil {
		renderError(c, h.logger, err)
		return
	}

	q := query.ListLessonsQuery{
		Range:   rng,
		Status:  c.Query("status"),
		ClassID: classID,
	}
	result, err := h.queries.ListLessons.Handle(c.Request.Context(), q)
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	ok(c, result)
}

// listClassFinancials serves GET /api/v1/classes/:id/financials.
// Filters: from, to (YYYY-MM-DD, optional, default current month).
func (h *handlers) listClassFinancials(c *gin.Context) {
	classID, err := parseIntParam(c.Param("id"), "id")
	if err != nil {
		renderError(c, h.logger, err)
		return
	}

	q := query.ListClassFinancialsQuery{ClassID: classID}
	if c.Query("from") != "" || c.Query("to") != "" {
		rng, err := parseDateRange(c.Query("from"), c.Query("to"))
		if err != nil {
			renderError(c, h.logger, err)
			return
		}
		q.Period = rng
	}

	result, err := h.queries.ListClassFinancials.Handle(c.Request.Context(), q)
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	ok(c, result)
}

// getCashFlow serves GET /api/v1/reports/cashflow.
// Filters: from, to (YYYY-MM-DD, required), group_by (day|week|month).
func (h *handlers) getCashFlow(c *gin.Context) {
	rng, err := parseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		renderError(c, h.logger, err)
		return
	}

	q := query.GetCashFlowQuery{
		Range:   rng,
		GroupBy: finance.CashFlowGrouping(c.Query("group_by")),
	}
	result, err := h.queries.GetCashFlow.Handle(c.Request.Context(), q)
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	ok(c, result)
}

// getFinancialSummary serves GET /api/v1/reports/summary.
// Filters: month, year (optional, default current).
func (h *handlers) getFinancialSummary(c *gin.Context) {
	month, err := parseIntParam(c.Query("month"), "month")
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	year, err := parseIntParam(c.Query("year"), "year")
	if err != nil {
		renderError(c, h.logger, err)
		return
	}

	q := query.GetFinancialSummaryQuery{Month: month, Year: year}
	result, err := h.queries.GetFinancialSummary.Handle(c.Request.Context(), q)
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	ok(c, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// PARAMETER PARSING
// ══════════════════════════════════════════════════════════════════════════════

// parseDateRange parses the from/to query parameters. Both are required;
// range ordering is validated by the query itself.
func parseDateRange(from, to string) (shared.DateRange, error) {
	start, err := parseDate(from, "from")
	if err != nil {
		return shared.DateRange{}, err
	}
	end, err := parseDate(to, "to")
	if err != nil {
		return shared.DateRange{}, err
	}
	return shared.DateRange{From: start, To: end}, nil
}

func parseDate(value, name string) (time.Time, error) {
	if value == "" {
		return time.Time{}, shared.NewDomainError("http", "parseDate", shared.ErrInvalidInput,
			"missing required parameter "+name)
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, shared.NewDomainError("http", "parseDate", shared.ErrInvalidInput,
			"parameter "+name+" must be formatted as YYYY-MM-DD")
	}
	return t, nil
}

// parseIntParam parses an optional non-negative integer parameter.
func parseIntParam(value, name string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, shared.NewDomainError("http", "parseIntParam", shared.ErrInvalidInput,
			"parameter "+name+" must be a non-negative integer")
	}
	return n, nil
}
