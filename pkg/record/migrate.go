package record

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Locker serializes schema migration across server replicas sharing one
// database.
type Locker interface {
	WithLock(ctx context.Context, fn func() error) error
}

var migrationKey = int64(crc32.ChecksumIEEE([]byte("stdm-schema-migration")))

// NewLocker picks a lock for the dialect of db: a session advisory lock on
// postgres, a lock row everywhere else.
func NewLocker(db *gorm.DB) (Locker, error) {
	if db.Dialector.Name() == DriverPostgres {
		return &advisoryLock{db: db, key: migrationKey}, nil
	}
	if err := db.AutoMigrate(&schemaLock{}); err != nil {
		return nil, fmt.Errorf("create migration lock table: %w", err)
	}
	host, _ := os.Hostname()
	if host == "" {
		host = "unknown"
	}
	return &rowLock{
		db:       db,
		owner:    host + "/" + uuid.NewString(),
		retry:    time.Second,
		attempts: 30,
		stale:    5 * time.Minute,
	}, nil
}

// advisoryLock holds a postgres session lock. Session locks belong to the
// connection that took them, so lock and unlock run on one pinned connection.
type advisoryLock struct {
	db  *gorm.DB
	key int64
}

func (l *advisoryLock) WithLock(ctx context.Context, fn func() error) error {
	return l.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("SELECT pg_advisory_lock(?)", l.key).Error; err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		fnErr := fn()
		err := conn.WithContext(context.WithoutCancel(ctx)).Exec("SELECT pg_advisory_unlock(?)", l.key).Error
		if err != nil {
			err = fmt.Errorf("release migration lock: %w", err)
		}
		return errors.Join(fnErr, err)
	})
}

type schemaLock struct {
	ID       string    `gorm:"primaryKey;size:32"`
	Owner    string    `gorm:"size:255"`
	LockedAt time.Time `gorm:"index"`
}

func (schemaLock) TableName() string { return "stdm_migration_lock" }

const schemaLockID = "schema"

// rowLock is held by whoever owns the single lock row. A row older than stale
// was left by a crashed replica and may be taken over.
type rowLock struct {
	db       *gorm.DB
	owner    string
	retry    time.Duration
	attempts int
	stale    time.Duration
}

func (l *rowLock) WithLock(ctx context.Context, fn func() error) error {
	db := l.db.WithContext(ctx)
	for i := 0; i < l.attempts; i++ {
		ok, err := l.acquire(db)
		if err != nil {
			return err
		}
		if ok {
			defer l.db.Where("id = ? AND owner = ?", schemaLockID, l.owner).Delete(&schemaLock{})
			return fn()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retry):
		}
	}
	return fmt.Errorf("acquire migration lock after %d attempts: held by another replica", l.attempts)
}

// acquire inserts the lock row, or takes it over when its holder went stale.
func (l *rowLock) acquire(db *gorm.DB) (bool, error) {
	now := time.Now()
	if db.Create(&schemaLock{ID: schemaLockID, Owner: l.owner, LockedAt: now}).Error == nil {
		return true, nil
	}
	res := db.Model(&schemaLock{}).
		Where("id = ? AND locked_at < ?", schemaLockID, now.Add(-l.stale)).
		Updates(map[string]any{"owner": l.owner, "locked_at": now})
	if res.Error != nil {
		return false, fmt.Errorf("take over migration lock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
