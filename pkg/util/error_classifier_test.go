package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"projectflow/contracts/mq"
)

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error
	if err := json.Unmarshal([]byte("{"), &struct{}{}); err != nil {
		syntaxErr = err
	}

	tests := []struct {
		name      string
		err       error
		retryable bool
		errType   string
	}{
		{"nil", nil, false, ""},
		{"json syntax", fmt.Errorf("decode: %w", syntaxErr), false, "json_decode_error"},
		{"unknown event", fmt.Errorf("%w: foo", mq.ErrUnknownEventType), false, "unknown_event_type"},
		{"no rows", pgx.ErrNoRows, false, "not_found"},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false, "duplicate_key"},
		{"fk violation", &pgconn.PgError{Code: "23503"}, false, "constraint_violation"},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true, "db_connection_error"},
		{"connection refused text", errors.New("dial tcp: connection refused"), true, "db_connection_error"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"wrapped deadline", fmt.Errorf("insert notification: %w", context.DeadlineExceeded), true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"unknown", errors.New("something odd"), false, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tt.err)
			if retryable != tt.retryable || errType != tt.errType {
				t.Fatalf("IsRetryableError(%v) = (%v, %q), want (%v, %q)", tt.err, retryable, errType, tt.retryable, tt.errType)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	if ShouldRetry(1, 3, false) {
		t.Error("non-retryable errors must not retry")
	}
	if !ShouldRetry(3, 3, true) {
		t.Error("retry at the limit should be allowed")
	}
	if ShouldRetry(4, 3, true) {
		t.Error("retry past the limit should stop")
	}
}
