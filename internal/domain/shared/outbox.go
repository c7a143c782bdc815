package shared

import (
	"errors"
	"time"
)

// OutboxStatus represents the status of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	OutboxStatusDead    OutboxStatus = "DEAD"
)

// DefaultMaxAttempts is the number of failed replays after which an entry is dead-lettered
const DefaultMaxAttempts = 10

// OutboxState is the delivery bookkeeping embedded in every locally queued operation
type OutboxState struct {
	Status        OutboxStatus `json:"status"`
	Attempts      int          `json:"attempts"`
	MaxAttempts   int          `json:"max_attempts"`
	LastError     string       `json:"last_error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	LastAttemptAt *time.Time   `json:"last_attempt_at,omitempty"`
}

// NewOutboxState creates pending bookkeeping; maxAttempts <= 0 uses DefaultMaxAttempts
func NewOutboxState(maxAttempts int, now time.Time) OutboxState {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return OutboxState{
		Status:      OutboxStatusPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
	}
}

// CanRetry returns true if the entry should be replayed on the next drain
func (s *OutboxState) CanRetry() bool {
	return s.Status == OutboxStatusPending && s.Attempts < s.MaxAttempts
}

// MarkFailed records a failed replay and dead-letters the entry once attempts run out
func (s *OutboxState) MarkFailed(errMsg string, now time.Time) {
	s.Attempts++
	s.LastError = errMsg
	s.LastAttemptAt = &now
	if s.Attempts >= s.MaxAttempts {
		s.Status = OutboxStatusDead
	}
}

// MarkDead dead-letters the entry immediately
func (s *OutboxState) MarkDead(errMsg string, now time.Time) {
	s.Attempts++
	s.LastError = errMsg
	s.LastAttemptAt = &now
	s.Status = OutboxStatusDead
}

// ResetForRetry moves a dead letter entry back to pending
func (s *OutboxState) ResetForRetry() error {
	if s.Status != OutboxStatusDead {
		return errors.New("can only retry dead letter entries")
	}
	s.Status = OutboxStatusPending
	s.Attempts = 0
	s.LastError = ""
	s.LastAttemptAt = nil
	return nil
}

// IsDead returns true if the entry is in dead letter status
func (s *OutboxState) IsDead() bool {
	return s.Status == OutboxStatusDead
}
