package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadEntriesOrderAndContent(t *testing.T) {
	entries, err := loadEntries()
	assert.NoError(t, err)
	assert.NotEmpty(t, entries)

	// The tracking table must exist before anything else runs, so its file
	// must sort first.
	assert.Equal(t, "000_migrations_table.sql", entries[0].version)

	for i, e := range entries {
		assert.True(t, strings.HasSuffix(e.version, ".sql"), "entry %d: %q", i, e.version)
		assert.NotEmpty(t, strings.TrimSpace(e.sql), "entry %d: %q has no SQL", i, e.version)
		if i > 0 {
			assert.Less(t, entries[i-1].version, e.version,
				"entries must be in lexicographic order")
		}
	}
}

func TestLoadEntriesCoverSchema(t *testing.T) {
	entries, err := loadEntries()
	assert.NoError(t, err)

	tables := map[string]bool{}
	for _, e := range entries {
		for _, tbl := range []string{"users", "refresh_tokens", "expenses"} {
			if strings.Contains(e.sql, "CREATE TABLE IF NOT EXISTS "+tbl) {
				tables[tbl] = true
			}
		}
	}

	assert.True(t, tables["users"], "no migration creates users")
	assert.True(t, tables["refresh_tokens"], "no migration creates refresh_tokens")
	assert.True(t, tables["expenses"], "no migration creates expenses")
}
