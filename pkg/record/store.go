// Package record persists entity records through gorm.
package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

// Store provides database operations for entity records.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB { return s.db }

// AutoMigrate creates or updates the tables of the given models.
func (s *Store) AutoMigrate(models ...any) error {
	if err := s.db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migrate records: %w", err)
	}
	return nil
}

// Create inserts rec, a pointer to an entity struct. Generated keys and
// timestamps are written back into rec.
func (s *Store) Create(ctx context.Context, rec any) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	s.logger.Debug("record created", "type", fmt.Sprintf("%T", rec))
	return nil
}

// Update writes every column of rec, including zero values, to the row with
// rec's primary key.
func (s *Store) Update(ctx context.Context, rec any) error {
	result := s.db.WithContext(ctx).Model(rec).Select("*").Updates(rec)
	if result.Error != nil {
		return fmt.Errorf("update record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	s.logger.Debug("record updated", "type", fmt.Sprintf("%T", rec))
	return nil
}

// Get loads the row with primary key id into dest. The id is always bound
// as a parameter, so identifiers taken from a URL are safe to pass.
func (s *Store) Get(ctx context.Context, dest any, id any) error {
	err := s.db.WithContext(ctx).First(dest, clause.Eq{Column: clause.PrimaryColumn, Value: id}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	return nil
}

// List loads up to limit rows into dest, a pointer to a slice of entity
// structs, ordered by primary key. A limit of zero or less loads every row.
func (s *Store) List(ctx context.Context, dest any, limit int) error {
	q := s.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.PrimaryColumn})
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(dest).Error; err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	return nil
}

// UniqueLookup asks whether Value is already stored in Table.Column by a row
// other than the one whose ExcludeColumn equals ExcludeValue. An empty
// ExcludeColumn or nil ExcludeValue considers every row.
type UniqueLookup struct {
	Table         string
	Column        string
	Value         any
	ExcludeColumn string
	ExcludeValue  any
}

// ValueTaken runs a UniqueLookup.
func (s *Store) ValueTaken(ctx context.Context, l UniqueLookup) (bool, error) {
	q := s.db.WithContext(ctx).Table(l.Table).
		Where(clause.Eq{Column: clause.Column{Name: l.Column}, Value: l.Value})
	if l.ExcludeColumn != "" && l.ExcludeValue != nil {
		q = q.Where(clause.Neq{Column: clause.Column{Name: l.ExcludeColumn}, Value: l.ExcludeValue})
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("check unique %s.%s: %w", l.Table, l.Column, err)
	}
	return n > 0, nil
}
