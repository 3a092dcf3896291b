package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "symbol_mappings.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadNormalizesBothEntryForms(t *testing.T) {
	path := writeFile(t, `{
		"PEPEUSDT": "1000PEPEUSDT",
		"SHIBUSDT": {"symbol": "1000SHIBUSDT", "rate": 1000},
		"FOOUSDT": {"symbol": "BARUSDT"}
	}`)

	table, err := NewJSONRepository(path).Load()
	require.NoError(t, err)
	require.Len(t, table, 3)

	assert.Equal(t, "1000PEPEUSDT", table["PEPEUSDT"].Symbol)
	assert.True(t, table["PEPEUSDT"].Rate.Equal(decimal.NewFromInt(1)))

	assert.Equal(t, "1000SHIBUSDT", table["SHIBUSDT"].Symbol)
	assert.True(t, table["SHIBUSDT"].Rate.Equal(decimal.NewFromInt(1000)))

	assert.True(t, table["FOOUSDT"].Rate.Equal(decimal.NewFromInt(1)))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	repo := NewJSONRepository(filepath.Join(t.TempDir(), "absent.json"))

	table, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, table)
	assert.False(t, repo.Exists())
}

func TestLoadRejectsInvalidEntries(t *testing.T) {
	for _, content := range []string{
		`{"A": 5}`,
		`{"A": {"symbol": "", "rate": 1}}`,
		`{"A": {"symbol": "B", "rate": 0}}`,
		`not json`,
	} {
		_, err := NewJSONRepository(writeFile(t, content)).Load()
		assert.Error(t, err, content)
	}
}
