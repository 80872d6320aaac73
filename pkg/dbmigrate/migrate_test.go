package dbmigrate

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/greeting-store/migrations"
)

func TestEmbeddedMigrations_AreGooseAnnotated(t *testing.T) {
	entries, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{"00001_greeting_baseline.sql", "00002_generate_logg.sql"}, entries)

	for _, name := range entries {
		raw, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err)
		body := string(raw)
		require.Contains(t, body, "-- +goose Up", name)
		require.Contains(t, body, "-- +goose Down", name)
	}
}

func TestEmbeddedMigrations_DefineGenerationProcedure(t *testing.T) {
	raw, err := fs.ReadFile(migrations.FS, "00002_generate_logg.sql")
	require.NoError(t, err)

	up := string(raw)
	if idx := strings.Index(up, "-- +goose Down"); idx >= 0 {
		up = up[:idx]
	}
	require.Contains(t, up, "CREATE OR REPLACE FUNCTION generate_logg() RETURNS void")
	require.Contains(t, up, "-- +goose StatementBegin")
	require.Contains(t, up, "-- +goose StatementEnd")
}

func TestNew_RequiresDB(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
}
