package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/models"
)

// Defaults used by NewSubmission.
const (
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 250 * time.Millisecond
)

// Result is the outcome of a successful Submit.
type Result struct {
	Expense  *models.Expense
	Replayed bool
	Attempts int
}

// Submission is one logical expense being entered by the user. It holds the
// idempotency key for the current attempt: the key survives failed submits,
// including after the form is edited, and is replaced only once the server
// confirms the expense is stored.
type Submission struct {
	client      *Client
	maxAttempts int
	backoff     time.Duration
	newKey      func() string

	mu   sync.Mutex
	form ExpenseForm
	key  string
}

// SubmissionOption configures a Submission.
type SubmissionOption func(*Submission)

// WithMaxAttempts bounds the automatic retries of a single Submit.
func WithMaxAttempts(n int) SubmissionOption {
	return func(s *Submission) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the base delay between attempts. The delay doubles
// after every failed attempt.
func WithRetryBackoff(d time.Duration) SubmissionOption {
	return func(s *Submission) {
		if d >= 0 {
			s.backoff = d
		}
	}
}

// NewSubmission starts a submission of form with a fresh idempotency key.
func NewSubmission(c *Client, form ExpenseForm, opts ...SubmissionOption) *Submission {
	s := &Submission{
		client:      c,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultRetryBackoff,
		newKey:      uuid.NewString,
		form:        form,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.key = s.newKey()
	return s
}

// Key returns the idempotency key the next Submit will send.
func (s *Submission) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Form returns the current form values.
func (s *Submission) Form() ExpenseForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// SetForm replaces the form values without touching the key.
func (s *Submission) SetForm(form ExpenseForm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = form
}

// Submit sends the form under the held key, retrying transport errors and
// 5xx responses with the same key. On success the key is rotated so the next
// Submit records a new expense.
func (s *Submission) Submit(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	form, key := s.form, s.key
	s.mu.Unlock()

	delay := s.backoff
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		expense, replayed, err := s.client.CreateExpense(ctx, form, key)
		if err == nil {
			s.rotate(key)
			return &Result{Expense: expense, Replayed: replayed, Attempts: attempt}, nil
		}
		lastErr = err

		if !retryable(ctx, err) || attempt == s.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, lastErr
}

// rotate issues a new key unless another Submit already did.
func (s *Submission) rotate(used string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == used {
		s.key = s.newKey()
	}
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
