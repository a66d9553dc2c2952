package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "spendwise/internal/errors"
)

// IdempotencyKeyHeader is the secondary channel for the idempotency key.
// The request body field takes precedence.
const IdempotencyKeyHeader = "Idempotency-Key"

// ReplayedHeader is set to "true" on responses that return a previously
// stored expense instead of creating one.
const ReplayedHeader = "Idempotent-Replayed"

// resolveIdempotencyKey picks the key from the body, falling back to the
// header when the body has none. Conflicting values are rejected.
func resolveIdempotencyKey(c *gin.Context, bodyKey string) (string, error) {
	headerKey := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))

	switch {
	case bodyKey != "" && headerKey != "" && bodyKey != headerKey:
		return "", apperrors.ErrIdempotencyKeyMismatch
	case bodyKey != "":
		return bodyKey, nil
	case headerKey != "":
		return headerKey, nil
	default:
		return "", apperrors.ErrIdempotencyKeyRequired
	}
}
