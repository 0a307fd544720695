package db

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles(t *testing.T) {
	names, err := MigrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "00001_create_dues_schema.sql", names[0])
}

func TestMigrations_DeclareGooseSections(t *testing.T) {
	names, err := MigrationFiles()
	require.NoError(t, err)

	for _, name := range names {
		data, err := migrations.ReadFile(migrationsDir + "/" + name)
		require.NoError(t, err)

		sql := string(data)
		assert.Contains(t, sql, "-- +goose Up", name)
		assert.Contains(t, sql, "-- +goose Down", name)
	}
}

func TestSchema_HasCandidateTables(t *testing.T) {
	data, err := migrations.ReadFile(migrationsDir + "/00001_create_dues_schema.sql")
	require.NoError(t, err)
	sql := string(data)

	for _, table := range []string{"settings", "user_files", "import_jobs", "retailers", "invoices"} {
		assert.True(t, strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+table+" ("), table)
	}
	assert.Contains(t, sql, "UNIQUE (user_id, retailer_phone)")
	assert.Contains(t, sql, "default_credit_days INTEGER NOT NULL DEFAULT 30")
}

func TestNew_RequiresDSN(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := New(context.Background(), Config{}, logger)
	assert.Error(t, err)

	_, err = New(context.Background(), Config{DSN: "postgres://%zz"}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse database config")
}
