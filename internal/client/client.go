// Package client provides an HTTP client for the Spendwise expense API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
)

// ExpenseForm is the user-entered part of an expense.
type ExpenseForm struct {
	Amount      models.Money `json:"amount"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Date        string       `json:"date"`
}

// Summary is the count and total returned by the summary endpoint.
type Summary struct {
	Count int64        `json:"count"`
	Total models.Money `json:"total"`
}

// StatusError is returned when the API answers with a non-success status.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// Temporary reports whether the request may succeed if repeated unchanged.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// Client communicates with the Spendwise API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// CreateExpense posts form once under key. replayed is true when the server
// returned an expense stored by an earlier request with the same key.
func (c *Client) CreateExpense(ctx context.Context, form ExpenseForm, key string) (*models.Expense, bool, error) {
	body := struct {
		ExpenseForm
		IdempotencyKey string `json:"idempotencyKey"`
	}{ExpenseForm: form, IdempotencyKey: key}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, false, fmt.Errorf("marshaling expense: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/expenses", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(idempotencyKeyHeader, key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("creating expense: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, false, decodeStatusError(resp)
	}

	var expense models.Expense
	if err := json.NewDecoder(resp.Body).Decode(&expense); err != nil {
		return nil, false, fmt.Errorf("decoding expense response: %w", err)
	}
	replayed := resp.StatusCode == http.StatusOK || resp.Header.Get(replayedHeader) == "true"
	return &expense, replayed, nil
}

// ListExpenses fetches expenses, optionally filtered by category. sort may be
// "date_desc" or empty for newest created first.
func (c *Client) ListExpenses(ctx context.Context, category, sort string) ([]models.Expense, error) {
	var expenses []models.Expense
	if err := c.get(ctx, "/expenses", query(category, sort), &expenses); err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return expenses, nil
}

// Summary fetches the count and total of the expenses in category, or of all
// expenses when category is empty.
func (c *Client) Summary(ctx context.Context, category string) (*Summary, error) {
	var summary Summary
	if err := c.get(ctx, "/expenses/summary", query(category, ""), &summary); err != nil {
		return nil, fmt.Errorf("fetching summary: %w", err)
	}
	return &summary, nil
}

// Categories fetches the known category names.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var result struct {
		Categories []string `json:"categories"`
	}
	if err := c.get(ctx, "/categories", nil, &result); err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	return result.Categories, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeStatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func query(category, sort string) url.Values {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if sort != "" {
		q.Set("sort", sort)
	}
	return q
}

func decodeStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}
	var body apperrors.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil {
		statusErr.Code = body.Error.Code
		statusErr.Message = body.Error.Message
	}
	return statusErr
}
