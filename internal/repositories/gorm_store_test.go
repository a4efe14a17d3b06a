package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=intake dbname=intake sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestGormStore_insertReclaimsExpiredRows(t *testing.T) {
	db := dryRunDB(t)
	store := NewGormStore[counter](db, "extractions", time.Hour)

	rec, err := store.record("session-1", counter{N: 1})
	require.NoError(t, err)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return tx.Clauses(insertOrReclaim(time.Now())).Create(rec)
	})

	assert.Contains(t, sql, "ON CONFLICT")
	assert.Contains(t, sql, "DO UPDATE SET")
	assert.Contains(t, sql, `"payload"="excluded"."payload"`)
	assert.Contains(t, sql, "kv_records.expires_at IS NOT NULL AND kv_records.expires_at <=")
	assert.NotContains(t, sql, "DO NOTHING")
}
