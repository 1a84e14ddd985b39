package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/vpetrenko/tracklet/internal/client/models"
	"github.com/vpetrenko/tracklet/internal/common"
	"github.com/vpetrenko/tracklet/internal/logging"
)

// DefaultTimeout bounds a single request round trip. The backend contract
// specifies no timeout; 30s is the documented default.
const DefaultTimeout = 30 * time.Second

// retry policy for idempotent reads: two extra attempts with fibonacci
// backoff starting at 250ms.
const (
	retryBase     = 250 * time.Millisecond
	retryAttempts = 2
)

// HTTPClient implements Client over the REST backend. Every protected
// call, the CSV export included, goes through the same do() helper, which
// attaches the bearer token read from the TokenSource at call time.
type HTTPClient struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	log      logging.Logger
	timeout  time.Duration
	pageSize int
}

// NewHTTPClient returns a client for the backend at baseURL. A zero
// timeout selects DefaultTimeout.
func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenSource, log logging.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{},
		tokens:   tokens,
		log:      log.With("component", "api"),
		timeout:  timeout,
		pageSize: common.DefaultPageSize,
	}
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// do performs one request. Transport failures map to ErrUnavailable. A 401
// on a protected call notifies the token source (forced logout) and maps to
// common.ErrTokenExpired; it is never retried. All other statuses are
// returned to the caller together with the body.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, payload any, protected bool) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	if protected {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if protected && resp.StatusCode == http.StatusUnauthorized {
		c.log.Warn(ctx, "token rejected, dropping session", "path", path)
		c.tokens.AuthFailed(ctx)
		return resp.StatusCode, data, common.ErrTokenExpired
	}

	return resp.StatusCode, data, nil
}

// get wraps do() with bounded backoff for idempotent reads. Only transport
// failures are retried.
func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, protected bool) (int, []byte, error) {
	var (
		status int
		data   []byte
	)
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewFibonacci(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		status, data, err = c.do(ctx, http.MethodGet, path, query, nil, protected)
		if errors.Is(err, ErrUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
	return status, data, err
}

func (c *HTTPClient) exchange(ctx context.Context, path string, payload any) (models.Session, error) {
	status, data, err := c.do(ctx, http.MethodPost, path, nil, payload, false)
	if err != nil {
		return models.Session{}, err
	}

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return models.Session{}, ErrInvalidCredentials
	case status == http.StatusConflict:
		return models.Session{}, ErrConflict
	default:
		return models.Session{}, c.statusError(status, data)
	}

	var wire struct {
		Access  string      `json:"access"`
		Refresh string      `json:"refresh"`
		User    models.User `json:"user"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return models.Session{}, fmt.Errorf("decode session: %w", err)
	}
	if wire.Access == "" {
		return models.Session{}, fmt.Errorf("%w: no access token in response", common.ErrorInternal)
	}
	user := wire.User
	return models.Session{User: &user, AccessToken: wire.Access, RefreshToken: wire.Refresh}, nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (models.Session, error) {
	return c.exchange(ctx, "/login/", map[string]string{
		"username": username,
		"password": password,
	})
}

func (c *HTTPClient) LoginWithGoogle(ctx context.Context, credential string) (models.Session, error) {
	return c.exchange(ctx, "/google-login/", map[string]string{
		"credential": credential,
	})
}

func (c *HTTPClient) Register(ctx context.Context, username, email, password string) (models.Session, error) {
	return c.exchange(ctx, "/register/", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
}

// filterQuery encodes set constraints only. An unset filter field must be
// absent from the query string: some servers interpret an empty parameter
// as "match empty string".
func filterQuery(f models.Filter) url.Values {
	q := url.Values{}
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.StartDate != "" {
		q.Set("start_date", f.StartDate)
	}
	if f.EndDate != "" {
		q.Set("end_date", f.EndDate)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// List fetches one page of the filtered result set. Both response shapes
// the backend produces are accepted: the paginated envelope
// {"results": [...], "count": n} and the plain array variant.
func (c *HTTPClient) List(ctx context.Context, filter models.Filter, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	q := filterQuery(filter)
	q.Set("page", strconv.Itoa(page))

	status, data, err := c.get(ctx, "/transactions/", q, true)
	if err != nil {
		return Page{}, err
	}
	if status != http.StatusOK {
		return Page{}, c.statusError(status, data)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []models.Transaction
		if err := json.Unmarshal(data, &items); err != nil {
			return Page{}, fmt.Errorf("decode transactions: %w", err)
		}
		return Page{Items: items, Page: 1, TotalPages: 1}, nil
	}

	var wire struct {
		Results []models.Transaction `json:"results"`
		Count   int                  `json:"count"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return Page{}, fmt.Errorf("decode transactions: %w", err)
	}

	totalPages := (wire.Count + c.pageSize - 1) / c.pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return Page{Items: wire.Results, Page: page, TotalPages: totalPages}, nil
}

// Create validates the draft locally, then posts it. The returned record
// carries the server-assigned id.
func (c *HTTPClient) Create(ctx context.Context, draft models.Draft) (models.Transaction, error) {
	record, err := draft.Validate()
	if err != nil {
		return models.Transaction{}, err
	}

	status, data, err := c.do(ctx, http.MethodPost, "/transactions/", nil, record, true)
	if err != nil {
		return models.Transaction{}, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return models.Transaction{}, c.statusError(status, data)
	}

	var created models.Transaction
	if err := json.Unmarshal(data, &created); err != nil {
		return models.Transaction{}, fmt.Errorf("decode created transaction: %w", err)
	}
	return created, nil
}

// Update replaces the full record (the backend contract is PUT, not
// PATCH). Callers must submit every field to avoid silently clearing the
// ones they leave out.
func (c *HTTPClient) Update(ctx context.Context, id int64, record models.Transaction) (models.Transaction, error) {
	record.ID = id
	path := fmt.Sprintf("/transactions/%d/", id)

	status, data, err := c.do(ctx, http.MethodPut, path, nil, record, true)
	if err != nil {
		return models.Transaction{}, err
	}
	if status != http.StatusOK {
		return models.Transaction{}, c.statusError(status, data)
	}

	var updated models.Transaction
	if err := json.Unmarshal(data, &updated); err != nil {
		return models.Transaction{}, fmt.Errorf("decode updated transaction: %w", err)
	}
	return updated, nil
}

func (c *HTTPClient) Delete(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/transactions/%d/", id)

	status, data, err := c.do(ctx, http.MethodDelete, path, nil, nil, true)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return c.statusError(status, data)
	}
	return nil
}

// Summary fetches server-side totals over the full filtered set.
func (c *HTTPClient) Summary(ctx context.Context, filter models.Filter) (models.Totals, error) {
	status, data, err := c.get(ctx, "/transactions/summary/", filterQuery(filter), true)
	if err != nil {
		return models.Totals{}, err
	}
	if status != http.StatusOK {
		return models.Totals{}, c.statusError(status, data)
	}

	var totals models.Totals
	if err := json.Unmarshal(data, &totals); err != nil {
		return models.Totals{}, fmt.Errorf("decode summary: %w", err)
	}
	totals.Balance = int64(totals.Income) - int64(totals.Expense)
	return totals, nil
}

// ExportCSV requests the CSV artifact for the current filter set. It rides
// the same authenticated transport as every other call, so it cannot run
// with a stale or missing token.
func (c *HTTPClient) ExportCSV(ctx context.Context, filter models.Filter) ([]byte, error) {
	status, data, err := c.get(ctx, "/transactions/export_csv/", filterQuery(filter), true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrExport, status)
	}
	return data, nil
}

// statusError maps a non-success response to the client error taxonomy.
func (c *HTTPClient) statusError(status int, body []byte) error {
	switch status {
	case http.StatusBadRequest:
		return validationError(body)
	case http.StatusForbidden:
		return common.ErrorUnauthorized
	case http.StatusNotFound:
		return common.ErrorNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return fmt.Errorf("%w: unexpected status %d", common.ErrorInternal, status)
	}
}

// validationError extracts the first field error from a DRF-style 400 body,
// e.g. {"amount": ["A valid number is required."]}.
func validationError(body []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		for field, v := range fields {
			switch reason := v.(type) {
			case string:
				return &models.ValidationError{Field: field, Reason: reason}
			case []any:
				if len(reason) > 0 {
					if s, ok := reason[0].(string); ok {
						return &models.ValidationError{Field: field, Reason: s}
					}
				}
			}
		}
	}
	return &models.ValidationError{Reason: strings.TrimSpace(string(body))}
}
