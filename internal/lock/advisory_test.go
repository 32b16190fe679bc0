package lock

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	getLockQuery     = regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")
	releaseLockQuery = regexp.QuoteMeta("SELECT RELEASE_LOCK(?)")
)

func newMock(t *testing.T) (sqlmock.Sqlmock, *AdvisoryLock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock, NewAdvisoryLock(db, "layoutdiff:pair:test")
}

func TestAcquireLock(t *testing.T) {
	tests := []struct {
		name     string
		rows     *sqlmock.Rows
		acquired bool
		wantErr  string
	}{
		{
			name:     "obtained",
			rows:     sqlmock.NewRows([]string{"r"}).AddRow(1),
			acquired: true,
		},
		{
			name: "timeout",
			rows: sqlmock.NewRows([]string{"r"}).AddRow(0),
		},
		{
			name:    "null",
			rows:    sqlmock.NewRows([]string{"r"}).AddRow(nil),
			wantErr: "returned NULL",
		},
		{
			name:    "unexpected value",
			rows:    sqlmock.NewRows([]string{"r"}).AddRow(7),
			wantErr: "unexpected GET_LOCK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, l := newMock(t)
			mock.ExpectQuery(getLockQuery).
				WithArgs("layoutdiff:pair:test", TimeoutMedium).
				WillReturnRows(tt.rows)

			acquired, err := l.AcquireLock(context.Background(), TimeoutMedium)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.acquired, acquired)
			assert.Equal(t, tt.acquired, l.IsHeld())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAcquireLockQueryError(t *testing.T) {
	mock, l := newMock(t)
	mock.ExpectQuery(getLockQuery).WillReturnError(errors.New("connection reset"))

	_, err := l.AcquireLock(context.Background(), TimeoutShort)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.False(t, l.IsHeld())
}

func TestAcquireLockAlreadyHeld(t *testing.T) {
	mock, l := newMock(t)
	mock.ExpectQuery(getLockQuery).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))

	_, err := l.TryAcquire(context.Background())
	require.NoError(t, err)

	// Second call must not hit the database.
	acquired, err := l.TryAcquire(context.Background())
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseLock(t *testing.T) {
	mock, l := newMock(t)

	released, err := l.ReleaseLock(context.Background())
	require.NoError(t, err)
	assert.False(t, released, "release without acquire is a no-op")

	mock.ExpectQuery(getLockQuery).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))
	mock.ExpectQuery(releaseLockQuery).
		WithArgs("layoutdiff:pair:test").
		WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))

	_, err = l.TryAcquire(context.Background())
	require.NoError(t, err)

	released, err = l.ReleaseLock(context.Background())
	require.NoError(t, err)
	assert.True(t, released)
	assert.False(t, l.IsHeld())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseLockNull(t *testing.T) {
	mock, l := newMock(t)
	mock.ExpectQuery(getLockQuery).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))
	mock.ExpectQuery(releaseLockQuery).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(nil))

	_, err := l.TryAcquire(context.Background())
	require.NoError(t, err)

	_, err = l.ReleaseLock(context.Background())
	require.Error(t, err)
	assert.False(t, l.IsHeld())
}

func TestAcquireOrFail(t *testing.T) {
	mock, l := newMock(t)
	mock.ExpectQuery(getLockQuery).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(0))

	err := l.AcquireOrFail(context.Background(), TimeoutShort)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockTimeout))
}

func TestWithLock(t *testing.T) {
	mock, l := newMock(t)
	mock.ExpectQuery(getLockQuery).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))
	mock.ExpectQuery(releaseLockQuery).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))

	called := false
	err := l.WithLock(context.Background(), TimeoutShort, func() error {
		called = true
		assert.True(t, l.IsHeld())
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, l.IsHeld())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithLockReleasesOnError(t *testing.T) {
	mock, l := newMock(t)
	mock.ExpectQuery(getLockQuery).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))
	mock.ExpectQuery(releaseLockQuery).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))

	boom := errors.New("boom")
	err := l.WithLock(context.Background(), TimeoutShort, func() error { return boom })
	assert.True(t, errors.Is(err, boom))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithLockReleasesOnPanic(t *testing.T) {
	mock, l := newMock(t)
	mock.ExpectQuery(getLockQuery).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))
	mock.ExpectQuery(releaseLockQuery).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))

	assert.Panics(t, func() {
		_ = l.WithLock(context.Background(), TimeoutShort, func() error { panic("boom") })
	})
	assert.False(t, l.IsHeld())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithLockTimeout(t *testing.T) {
	mock, l := newMock(t)
	mock.ExpectQuery(getLockQuery).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(0))

	err := l.WithLock(context.Background(), TimeoutShort, func() error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.True(t, errors.Is(err, ErrLockTimeout))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGeneratePairLockName(t *testing.T) {
	tests := []struct {
		pair     string
		expected string
	}{
		{"token", "layoutdiff:pair:token"},
		{"vault-v2", "layoutdiff:pair:vault-v2"},
		{"a/b c", "layoutdiff:pair:a_b_c"},
		{"x'; DROP TABLE", "layoutdiff:pair:x___DROP_TABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.pair, func(t *testing.T) {
			assert.Equal(t, tt.expected, GeneratePairLockName(tt.pair))
		})
	}
}

func TestGeneratePairLockNameLong(t *testing.T) {
	a := GeneratePairLockName(strings.Repeat("a", 100))
	b := GeneratePairLockName(strings.Repeat("a", 99) + "b")

	assert.Len(t, a, maxLockNameLength)
	assert.Len(t, b, maxLockNameLength)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "layoutdiff:pair:"))
}

func TestNewPairLock(t *testing.T) {
	l := NewPairLock(nil, "token")
	assert.Equal(t, "layoutdiff:pair:token", l.LockName())
	assert.False(t, l.IsHeld())
}
