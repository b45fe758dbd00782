package resilience

import (
	"time"
)

// DLQEntry is a consolidation record that failed and can be retried later.
type DLQEntry struct {
	ID           string    `json:"id"`
	DocKey       string    `json:"doc_key"`
	Stage        string    `json:"stage"` // read_linkage, read_pac_transfers, merge, write
	Error        string    `json:"error"`
	ErrorType    string    `json:"error_type"` // "transient" or "permanent"
	RetryCount   int       `json:"retry_count"`
	MaxRetries   int       `json:"max_retries"`
	NextRetryAt  time.Time `json:"next_retry_at"`
	CreatedAt    time.Time `json:"created_at"`
	LastFailedAt time.Time `json:"last_failed_at"`
}

// DLQFilter specifies criteria for querying the dead letter queue.
type DLQFilter struct {
	ErrorType string `json:"error_type,omitempty"` // "transient", "permanent", or "" for all
	Stage     string `json:"stage,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// CanRetry returns true if this entry hasn't exceeded its max retry count.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

const (
	dlqMaxRetries = 3
	dlqRetryDelay = 5 * time.Minute
)

// NewDLQEntry builds a dead-letter entry for a failed record. Transient
// failures get a retry budget and a next-retry time; permanent ones are
// parked for manual inspection.
func NewDLQEntry(docKey, stage string, err error) *DLQEntry {
	now := time.Now().UTC()
	e := &DLQEntry{
		DocKey:       docKey,
		Stage:        stage,
		Error:        err.Error(),
		ErrorType:    ClassifyError(err),
		CreatedAt:    now,
		LastFailedAt: now,
	}
	if e.ErrorType == "transient" {
		e.MaxRetries = dlqMaxRetries
		e.NextRetryAt = now.Add(dlqRetryDelay)
	}
	return e
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
