package itf

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestSanitizeDBName(t *testing.T) {
	require.Equal(t, "testfoo_bar_baz", sanitizeDBName("TestFoo/bar-baz"))
	require.Equal(t, "test_db", sanitizeDBName("///"))

	long := "TestGreetingQueryRepository/" + strings.Repeat("very_long_subtest_name_", 5)
	got := sanitizeDBName(long)
	require.LessOrEqual(t, len(got), maxDBNameLength)
	require.NotEqual(t, got, sanitizeDBName(long+"x"))
	require.Regexp(t, `^[a-z0-9_]+$`, got)
}

func TestRecreateDB_DropsThenCreates(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DROP DATABASE IF EXISTS "testfoo" WITH (FORCE)`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE DATABASE "testfoo"`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, recreateDB(context.Background(), db, "testfoo"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecreateDB_StopsOnDropFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("permission denied")
	mock.ExpectExec(`DROP DATABASE IF EXISTS "testfoo" WITH (FORCE)`).WillReturnError(boom)

	require.ErrorIs(t, recreateDB(context.Background(), db, "testfoo"), boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
