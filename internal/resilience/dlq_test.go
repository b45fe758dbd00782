package resilience

import (
	"errors"
	"testing"
)

func TestDLQEntry_CanRetry(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		maxRetries int
		want       bool
	}{
		{"below max", 0, 3, true},
		{"at max", 3, 3, false},
		{"above max", 5, 3, false},
		{"one below max", 2, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := DLQEntry{
				RetryCount: tt.retryCount,
				MaxRetries: tt.maxRetries,
			}
			if got := e.CanRetry(); got != tt.want {
				t.Errorf("CanRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"transient error", NewTransientError(errors.New("503"), 503), "transient"},
		{"permanent error", errors.New("invalid input"), "permanent"},
		{"connection reset", errors.New("connection reset by peer"), "transient"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewDLQEntry_TransientGetsRetryBudget(t *testing.T) {
	e := NewDLQEntry("acme_2024", "write", NewTransientError(errors.New("503"), 503))

	if e.ErrorType != "transient" {
		t.Fatalf("ErrorType = %q, want transient", e.ErrorType)
	}
	if !e.CanRetry() {
		t.Error("expected a retryable entry")
	}
	if e.NextRetryAt.IsZero() {
		t.Error("expected a scheduled next retry")
	}
	if !e.NextRetryAt.After(e.LastFailedAt) {
		t.Errorf("NextRetryAt %v not after LastFailedAt %v", e.NextRetryAt, e.LastFailedAt)
	}
}

func TestNewDLQEntry_PermanentIsParked(t *testing.T) {
	e := NewDLQEntry("acme_2024", "merge", errors.New("invalid input"))

	if e.ErrorType != "permanent" {
		t.Fatalf("ErrorType = %q, want permanent", e.ErrorType)
	}
	if e.CanRetry() {
		t.Error("permanent entries must not be retryable")
	}
	if !e.NextRetryAt.IsZero() {
		t.Errorf("NextRetryAt = %v, want zero", e.NextRetryAt)
	}
}
