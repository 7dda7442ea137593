package record

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type parcel struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"unique;not null"`
	Name      string
	Area      float64
	Disputed  bool
	UpdatedAt time.Time
}

func (parcel) TableName() string { return "parcels" }

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s := NewStore(db, nil)
	require.NoError(t, s.AutoMigrate(&parcel{}))
	return s
}

func TestCreateAssignsID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := &parcel{Code: "P001", Name: "Parcel A"}
	require.NoError(t, s.Create(ctx, p))
	assert.NotZero(t, p.ID)

	var got parcel
	require.NoError(t, s.Get(ctx, &got, p.ID))
	assert.Equal(t, "Parcel A", got.Name)
}

func TestCreateDuplicateFails(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &parcel{Code: "P001"}))
	err := s.Create(ctx, &parcel{Code: "P001"})
	require.Error(t, err)
}

func TestUpdateWritesZeroValues(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := &parcel{Code: "P001", Name: "Parcel A", Area: 10, Disputed: true}
	require.NoError(t, s.Create(ctx, p))

	p.Name = ""
	p.Area = 0
	p.Disputed = false
	require.NoError(t, s.Update(ctx, p))

	var got parcel
	require.NoError(t, s.Get(ctx, &got, p.ID))
	assert.Empty(t, got.Name)
	assert.Zero(t, got.Area)
	assert.False(t, got.Disputed)
}

func TestUpdateMissingRow(t *testing.T) {
	s := setupTestStore(t)
	err := s.Update(context.Background(), &parcel{ID: 999, Code: "P999"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetMissingRow(t *testing.T) {
	s := setupTestStore(t)
	var got parcel
	err := s.Get(context.Background(), &got, 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListOrderedAndLimited(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	for _, code := range []string{"A", "B", "C"} {
		require.NoError(t, s.Create(ctx, &parcel{Code: code}))
	}

	var all []parcel
	require.NoError(t, s.List(ctx, &all, 0))
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].Code)
	assert.Equal(t, "C", all[2].Code)

	var some []parcel
	require.NoError(t, s.List(ctx, &some, 2))
	assert.Len(t, some, 2)
}

func TestValueTaken(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	p := &parcel{Code: "P001"}
	require.NoError(t, s.Create(ctx, p))

	taken, err := s.ValueTaken(ctx, UniqueLookup{Table: "parcels", Column: "code", Value: "P001"})
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = s.ValueTaken(ctx, UniqueLookup{Table: "parcels", Column: "code", Value: "P002"})
	require.NoError(t, err)
	assert.False(t, taken)

	// The record itself does not count against its own value.
	taken, err = s.ValueTaken(ctx, UniqueLookup{
		Table: "parcels", Column: "code", Value: "P001",
		ExcludeColumn: "id", ExcludeValue: p.ID,
	})
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestValueTakenUnknownColumn(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.ValueTaken(context.Background(), UniqueLookup{Table: "parcels", Column: "nope", Value: 1})
	require.Error(t, err)
}

func TestValueTakenSQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "parcels" WHERE "code" = $1 AND "id" <> $2`)).
		WithArgs("P001", 7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	taken, err := NewStore(db, nil).ValueTaken(context.Background(), UniqueLookup{
		Table: "parcels", Column: "code", Value: "P001",
		ExcludeColumn: "id", ExcludeValue: 7,
	})
	require.NoError(t, err)
	assert.True(t, taken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen(t *testing.T) {
	db, err := Open(DatabaseConfig{Driver: "sqlite", LogLevel: "silent"})
	require.NoError(t, err)
	require.NotNil(t, db)

	_, err = Open(DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)

	_, err = Open(DatabaseConfig{Driver: "sqlite", LogLevel: "chatty"})
	require.Error(t, err)
}
