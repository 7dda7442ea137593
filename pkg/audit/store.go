// Package audit keeps a history of form submissions: which form saved or
// rejected what, and why.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Submission outcomes.
const (
	OutcomeSaved    = "saved"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

const defaultListLimit = 50

// Event records one form submission.
type Event struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	RequestID string `gorm:"size:64" json:"requestId,omitempty"`
	Form      string `gorm:"size:64;index" json:"form"`
	Entity    string `gorm:"size:64" json:"entity"`
	Mode      string `gorm:"size:16" json:"mode"`
	RecordID  string `gorm:"size:64" json:"recordId,omitempty"`
	Outcome   string `gorm:"size:16;index" json:"outcome"`
	// Errors holds the validation or storage messages, one per line.
	Errors    string    `json:"errors,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (Event) TableName() string { return "form_submissions" }

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Form    string
	Outcome string
	Limit   int
}

// Store persists audit events.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// Migrate creates the event table.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&Event{}); err != nil {
		return fmt.Errorf("migrate audit events: %w", err)
	}
	return nil
}

// Append stores e, assigning an ID and timestamp when missing.
func (s *Store) Append(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// List returns matching events, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if f.Form != "" {
		q = q.Where("form = ?", f.Form)
	}
	if f.Outcome != "" {
		q = q.Where("outcome = ?", f.Outcome)
	}
	var events []Event
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

// DeleteOlderThan removes events created before cutoff and returns how many
// were removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Event{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete audit events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
