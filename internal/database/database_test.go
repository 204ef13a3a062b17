package database_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/invisifeed/invisifeed/internal/database"
)

func TestBusinessLockKey(t *testing.T) {
	a := uuid.MustParse("6f1c0a52-2d0f-4a4e-9b5e-1d1f7c3c2a10")
	b := uuid.MustParse("0b7e3c1a-8f7d-4c39-a0cb-5b2d8f0e4e11")

	assert.Equal(t, database.BusinessLockKey(a), database.BusinessLockKey(a))
	assert.NotEqual(t, database.BusinessLockKey(a), database.BusinessLockKey(b))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := database.MigrationFiles()
	assert.NoError(t, err)
	assert.Contains(t, entries, "000001_init.up.sql")
	assert.Contains(t, entries, "000001_init.down.sql")
}
