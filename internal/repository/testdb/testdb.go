// Package testdb opens isolated in-memory databases for tests.
package testdb

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vcenk/say-it-translated/internal/repository"
)

// Open returns a migrated in-memory sqlite database private to t.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := repository.OpenSQLite(dsn)
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(context.Background(), db, zerolog.Nop()))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
