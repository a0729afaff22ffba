package postgres_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/nudge-api/internal/platform/postgres"
	"github.com/phrazzld/nudge-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "tasks",
		ColumnName:     "status",
		ConstraintName: "tasks_result_iff_completed",
	}
}

// MockResult implements sql.Result for testing
type MockResult struct {
	rowsAffected int64
	err          error
}

func (m MockResult) LastInsertId() (int64, error) { return 0, m.err }
func (m MockResult) RowsAffected() (int64, error) { return m.rowsAffected, m.err }

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "no rows", err: sql.ErrNoRows, wantIs: store.ErrNotFound},
		{name: "unique violation", err: newPgError("23505"), wantIs: store.ErrDuplicate},
		{name: "foreign key violation", err: newPgError("23503"), wantIs: store.ErrInvalidEntity},
		{name: "check violation", err: newPgError("23514"), wantIs: store.ErrInvalidEntity},
		{name: "not null violation", err: newPgError("23502"), wantIs: store.ErrInvalidEntity},
		{name: "connection failure class", err: newPgError("08006"), wantIs: store.ErrUnavailable},
		{name: "admin shutdown", err: newPgError("57P01"), wantIs: store.ErrUnavailable},
		{name: "bad conn", err: fmt.Errorf("exec: %w", driver.ErrBadConn), wantIs: store.ErrUnavailable},
		{name: "conn done", err: sql.ErrConnDone, wantIs: store.ErrUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, wantIs: store.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := postgres.MapError(tt.err)
			if tt.wantNil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.wantIs)
		})
	}

	t.Run("unmapped error passes through", func(t *testing.T) {
		orig := errors.New("weird")
		assert.Same(t, orig, postgres.MapError(orig))
	})

	t.Run("syntax error is not unavailability", func(t *testing.T) {
		assert.False(t, postgres.IsUnavailable(newPgError("42601")))
	})
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.False(t, postgres.IsUniqueViolation(nil))
	assert.False(t, postgres.IsUniqueViolation(errors.New("generic")))
	assert.True(t, postgres.IsUniqueViolation(fmt.Errorf("wrapped: %w", newPgError("23505"))))
	assert.False(t, postgres.IsUniqueViolation(newPgError("23503")))
}

func TestIsCheckConstraintViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, postgres.IsCheckConstraintViolation(newPgError("23514")))
	assert.False(t, postgres.IsCheckConstraintViolation(newPgError("23505")))
}

func TestRowsAffected(t *testing.T) {
	t.Parallel()

	n, err := postgres.RowsAffected(MockResult{rowsAffected: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = postgres.RowsAffected(nil)
	assert.Error(t, err)

	_, err = postgres.RowsAffected(MockResult{err: errors.New("driver")})
	assert.Error(t, err)
}
