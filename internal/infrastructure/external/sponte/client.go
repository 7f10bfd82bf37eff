package sponte

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sponte-hub/sponte-dashboard/internal/domain/finance"
	"github.com/sponte-hub/sponte-dashboard/internal/domain/school"
	"github.com/sponte-hub/sponte-dashboard/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Sponte API client.
type ClientConfig struct {
	// BaseURL is the Sponte integration service base URL.
	BaseURL string

	// Login and Password are the integration credentials exchanged for a
	// bearer token at /api/v1/login.
	Login    string
	Password string

	// ClientCode is the mandatory Sponte customer code (codCliSponte),
	// injected into every request.
	ClientCode int

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MaxPages caps how many pages a paginated fetch will follow, guarding
	// against a misbehaving totalPaginas value.
	MaxPages int

	// RetryConfig for transient-failure retry behavior.
	RetryConfig RetryConfig

	// RateLimiterConfig for API rate limiting.
	RateLimiterConfig RateLimiterConfig

	// CircuitBreakerConfig for fault tolerance.
	CircuitBreakerConfig CircuitBreakerConfig

	// Logger for structured logging.
	Logger *slog.Logger

	// Debug enables per-request debug logging.
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:              baseURL,
		Timeout:              30 * time.Second,
		MaxPages:             100,
		RetryConfig:          DefaultRetryConfig(),
		RateLimiterConfig:    DefaultRateLimiterConfig(),
		CircuitBreakerConfig: DefaultCircuitBreakerConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// APIError is a non-2xx response from the Sponte API.
type APIError struct {
	// StatusCode is the HTTP status of the failed request.
	StatusCode int

	// Body is the (truncated) response body for diagnostics.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("sponte api: status %d: %s", e.StatusCode, e.Body)
}

// Is maps HTTP status classes onto the shared error taxonomy so callers can
// classify failures with errors.Is without knowing about HTTP.
func (e *APIError) Is(target error) bool {
	switch target {
	case shared.ErrAuthentication:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case shared.ErrUnavailable:
		return e.StatusCode >= 500
	case shared.ErrBadRequest:
		return e.StatusCode >= 400 && e.StatusCode < 500 &&
			e.StatusCode != http.StatusUnauthorized && e.StatusCode != http.StatusForbidden
	}
	return false
}

// retryable reports whether the response class is worth retrying.
func (e *APIError) retryable() bool {
	return e.StatusCode >= 500
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Sponte school-management API client. It owns the session
// token: the token is acquired lazily on the first request, guarded by a
// mutex, and refreshed transparently once when the API answers 401.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker
	mapper         *Mapper

	token   string
	tokenMu sync.RWMutex
}

// NewClient creates a new Sponte API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 100
	}
	if config.RetryConfig.MaxAttempts <= 0 {
		config.RetryConfig = DefaultRetryConfig()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:         config.Logger,
		rateLimiter:    NewRateLimiter(config.RateLimiterConfig),
		circuitBreaker: NewCircuitBreaker(config.CircuitBreakerConfig),
		mapper:         NewMapper(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// Authenticate exchanges the configured credentials for a bearer token and
// stores it for subsequent requests.
func (c *Client) Authenticate(ctx context.Context) error {
	body, err := json.Marshal(loginRequest{Login: c.config.Login, Password: c.config.Password})
	if err != nil {
		return fmt.Errorf("marshal login body: %w", err)
	}

	fullURL := c.config.BaseURL + "/api/v1/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.WrapError("sponte", "Authenticate", shared.ErrUnavailable, "login request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 {
			return shared.WrapError("sponte", "Authenticate", shared.ErrUnavailable,
				"login failed", &APIError{StatusCode: resp.StatusCode, Body: truncate(respBody)})
		}
		return shared.WrapError("sponte", "Authenticate", shared.ErrAuthentication,
			"login rejected", &APIError{StatusCode: resp.StatusCode, Body: truncate(respBody)})
	}

	var login loginResponse
	if err := json.Unmarshal(respBody, &login); err != nil {
		return fmt.Errorf("parse login response: %w", err)
	}
	if login.Token == "" {
		return shared.NewDomainError("sponte", "Authenticate", shared.ErrAuthentication,
			"login response carried no token")
	}

	c.tokenMu.Lock()
	c.token = login.Token
	c.tokenMu.Unlock()

	c.logger.Info("sponte login ok")
	return nil
}

// currentToken returns the stored bearer token, empty when not logged in.
func (c *Client) currentToken() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHOOL OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// ClassesFilter narrows the /api/v1/turmas listing.
type ClassesFilter struct {
	// Status limits results to one class status; empty fetches all.
	Status school.ClassStatus

	// Modality filters by offering type, e.g. "TECNOLOGIA".
	Modality string

	// LanguageID and StageID are Sponte catalog filters (0 = all).
	LanguageID int
	StageID    int
}

// ListClasses fetches all pages of classes matching the filter.
func (c *Client) ListClasses(ctx context.Context, filter ClassesFilter) ([]school.Class, error) {
	params := url.Values{}
	if filter.Status != "" && filter.Status != school.ClassStatusUnknown {
		params.Set("situacaoTurma", strconv.Itoa(filter.Status.Code()))
	}
	if filter.Modality != "" {
		params.Set("modalidade", filter.Modality)
	}
	params.Set("idiomaId", strconv.Itoa(filter.LanguageID))
	params.Set("estagioId", strconv.Itoa(filter.StageID))

	dtos, err := fetchAllPages[ClassDTO](ctx, c, "/api/v1/turmas", params)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return c.mapper.ClassesFromDTOs(dtos), nil
}

// StudentsFilter narrows the /api/v1/alunos listing.
type StudentsFilter struct {
	// Status limits results to one enrollment status; empty fetches all.
	Status school.EnrollmentStatus
}

// ListStudents fetches all pages of students matching the filter.
func (c *Client) ListStudents(ctx context.Context, filter StudentsFilter) ([]school.Student, error) {
	params := url.Values{}
	if filter.Status != "" && filter.Status != school.EnrollmentUnknown {
		params.Set("situacao", strconv.Itoa(filter.Status.Code()))
	}

	dtos, err := fetchAllPages[StudentDTO](ctx, c, "/api/v1/alunos", params)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return c.mapper.StudentsFromDTOs(dtos), nil
}

// LessonsFilter narrows the /api/v1/aulas listing.
type LessonsFilter struct {
	// From and To bound the lesson dates (inclusive).
	From time.Time
	To   time.Time

	// Status limits results to one confirmation status; empty fetches all.
	Status school.LessonStatus

	// ClassID, StudentID and TeacherID filter by association (0 = all).
	ClassID   int
	StudentID int
	TeacherID int
}

// ListLessons fetches all pages of lessons matching the filter.
func (c *Client) ListLessons(ctx context.Context, filter LessonsFilter) ([]school.Lesson, error) {
	params := url.Values{}
	if !filter.From.IsZero() {
		params.Set("dataAulaInicio", filter.From.Format("2006-01-02"))
	}
	if !filter.To.IsZero() {
		params.Set("dataAulaFim", filter.To.Format("2006-01-02"))
	}
	switch filter.Status {
	case school.LessonConfirmed:
		params.Set("situacao", "1")
	case school.LessonPending:
		params.Set("situacao", "0")
	}
	if filter.ClassID > 0 {
		params.Set("turmaId", strconv.Itoa(filter.ClassID))
	}
	if filter.StudentID > 0 {
		params.Set("alunoId", strconv.Itoa(filter.StudentID))
	}
	if filter.TeacherID > 0 {
		params.Set("professorId", strconv.Itoa(filter.TeacherID))
	}

	dtos, err := fetchAllPages[LessonDTO](ctx, c, "/api/v1/aulas", params)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return c.mapper.LessonsFromDTOs(dtos), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FINANCIAL OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// EntriesFilter narrows the contasReceber/contasPagar listings.
type EntriesFilter struct {
	// Status limits results to one payment status; empty fetches all.
	Status finance.PaymentStatus

	// StudentID filters receivables by debtor (0 = all).
	StudentID int

	// DueFrom/DueTo bound the due date (inclusive).
	DueFrom time.Time
	DueTo   time.Time

	// PaidFrom/PaidTo bound the payment date (inclusive).
	PaidFrom time.Time
	PaidTo   time.Time
}

func (f EntriesFilter) params() url.Values {
	params := url.Values{}
	switch f.Status {
	case finance.PaymentPaid:
		params.Set("situacao", "1")
	case finance.PaymentPending:
		params.Set("situacao", "0")
	}
	if f.StudentID > 0 {
		params.Set("alunoID", strconv.Itoa(f.StudentID))
	}
	if !f.DueFrom.IsZero() {
		params.Set("dataVencimentoInicio", f.DueFrom.Format("2006-01-02"))
	}
	if !f.DueTo.IsZero() {
		params.Set("dataVencimentoFim", f.DueTo.Format("2006-01-02"))
	}
	if !f.PaidFrom.IsZero() {
		params.Set("dataPagamentoInicio", f.PaidFrom.Format("2006-01-02"))
	}
	if !f.PaidTo.IsZero() {
		params.Set("dataPagamentoFim", f.PaidTo.Format("2006-01-02"))
	}
	return params
}

// ListReceivables fetches all pages of contas a receber matching the filter.
func (c *Client) ListReceivables(ctx context.Context, filter EntriesFilter) ([]finance.Entry, error) {
	dtos, err := fetchAllPages[EntryDTO](ctx, c, "/api/v1/contasReceber", filter.params())
	if err != nil {
		return nil, fmt.Errorf("list receivables: %w", err)
	}
	return c.mapper.EntriesFromDTOs(dtos, finance.KindReceivable), nil
}

// ListPayables fetches all pages of contas a pagar matching the filter.
func (c *Client) ListPayables(ctx context.Context, filter EntriesFilter) ([]finance.Entry, error) {
	dtos, err := fetchAllPages[EntryDTO](ctx, c, "/api/v1/contasPagar", filter.params())
	if err != nil {
		return nil, fmt.Errorf("list payables: %w", err)
	}
	return c.mapper.EntriesFromDTOs(dtos, finance.KindPayable), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// fetchAllPages walks a paginated Sponte endpoint via the pagina parameter,
// concatenating listDados rows until totalPaginas is exhausted or the page
// cap is reached.
func fetchAllPages[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	var all []T

	page := 1
	for {
		pageParams := url.Values{}
		for k, v := range params {
			pageParams[k] = v
		}
		pageParams.Set("pagina", strconv.Itoa(page))

		var resp PagedResponse[T]
		if err := c.doRequest(ctx, path, pageParams, &resp); err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		all = append(all, resp.Rows...)

		if len(resp.Rows) == 0 || page >= resp.TotalPages {
			break
		}
		if page >= c.config.MaxPages {
			c.logger.Warn("pagination cap reached",
				"path", path, "pages", page, "cap", c.config.MaxPages)
			break
		}
		page++
	}

	return all, nil
}

// doRequest performs an authenticated GET with rate limiting, circuit
// breaking, bounded retries on transient failures, and a single transparent
// re-authentication on 401.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, result any) error {
	if err := c.circuitBreaker.Allow(); err != nil {
		return shared.WrapError("sponte", "doRequest", shared.ErrUnavailable, "circuit breaker", err)
	}

	// Token is acquired lazily on the first call.
	if c.currentToken() == "" {
		if err := c.Authenticate(ctx); err != nil {
			c.circuitBreaker.RecordFailure()
			return err
		}
	}

	reauthenticated := false
	var lastErr error

	for attempt := 1; attempt <= c.config.RetryConfig.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.config.RetryConfig.CalculateBackoff(attempt - 1)
			select {
			case <-ctx.Done():
				return c.ctxError(ctx, lastErr)
			case <-time.After(backoff):
			}
		}

		if wait := c.rateLimiter.Reserve(); wait > 0 {
			select {
			case <-ctx.Done():
				return c.ctxError(ctx, lastErr)
			case <-time.After(wait):
			}
		}

		err := c.doSingleRequest(ctx, path, params, result)
		if err == nil {
			c.circuitBreaker.RecordSuccess()
			return nil
		}

		// Expired token: re-authenticate once and replay the request once.
		if errors.Is(err, shared.ErrAuthentication) && !reauthenticated {
			reauthenticated = true
			c.logger.Info("token rejected, re-authenticating", "path", path)
			if authErr := c.Authenticate(ctx); authErr != nil {
				c.circuitBreaker.RecordFailure()
				return authErr
			}
			if err = c.doSingleRequest(ctx, path, params, result); err == nil {
				c.circuitBreaker.RecordSuccess()
				return nil
			}
		}

		if ctx.Err() != nil {
			c.circuitBreaker.RecordFailure()
			return c.ctxError(ctx, err)
		}

		if !isRetryable(err) {
			c.circuitBreaker.RecordFailure()
			return err
		}
		lastErr = err
	}

	c.circuitBreaker.RecordFailure()
	return shared.WrapError("sponte", "doRequest", shared.ErrUnavailable,
		fmt.Sprintf("request failed after %d attempts", c.config.RetryConfig.MaxAttempts), lastErr)
}

// doSingleRequest performs a single authenticated GET.
func (c *Client) doSingleRequest(ctx context.Context, path string, params url.Values, result any) error {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	// The Sponte customer code is mandatory on every request.
	query.Set("codCliSponte", strconv.Itoa(c.config.ClientCode))

	fullURL := c.config.BaseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.currentToken())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	if c.config.Debug {
		c.logger.Debug("sponte api request", "path", path, "params", params.Encode())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// ctxError translates a context failure into the shared taxonomy.
func (c *Client) ctxError(ctx context.Context, lastErr error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return shared.WrapError("sponte", "doRequest", shared.ErrTimeout, "deadline exceeded", lastErr)
	}
	if lastErr != nil {
		return lastErr
	}
	return ctx.Err()
}

// isRetryable reports whether an error is worth another attempt: network
// failures and 5xx responses are, everything else is not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.retryable()
	}
	// Anything that never produced an HTTP status is a network-level failure.
	return true
}

// truncate bounds response bodies kept inside errors.
func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
