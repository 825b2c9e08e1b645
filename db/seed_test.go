// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
parties:
  - name: Green Party
    symbol_name: Tree
    color: "#16a34a"
    short_code: GP
  - name: Blue Alliance
    symbol_name: Wave
    image_url: https://example.org/wave.png
    short_code: BA
`

func openTestDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "seed_test.db")
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parties.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	parties, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, parties, 2)

	assert.Equal(t, "Green Party", parties[0].Name)
	assert.Nil(t, parties[0].ImageURL)
	require.NotNil(t, parties[1].ImageURL)
	assert.Equal(t, "https://example.org/wave.png", *parties[1].ImageURL)
}

func TestLoadSeed_RequiresShortCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parties.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parties:\n  - name: Nameless\n"), 0o600))

	_, err := LoadSeed(path)
	assert.Error(t, err)
}

func TestSeedParties_OnlyWhenEmpty(t *testing.T) {
	conn, err := Open("sqlite", openTestDB(t))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, CreateSchema(conn, "sqlite"))

	path := filepath.Join(t.TempDir(), "parties.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))
	parties, err := LoadSeed(path)
	require.NoError(t, err)

	n, err := SeedParties(conn, parties)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Second run leaves the table alone
	n, err = SeedParties(conn, parties)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	rows, err := conn.Query(`SELECT short_code, color FROM party ORDER BY created_at`)
	require.NoError(t, err)
	defer rows.Close()

	var codes, colors []string
	for rows.Next() {
		var code, color string
		require.NoError(t, rows.Scan(&code, &color))
		codes = append(codes, code)
		colors = append(colors, color)
	}
	assert.Equal(t, []string{"GP", "BA"}, codes)
	assert.Equal(t, "#64748b", colors[1], "missing color falls back to the default")
}

func TestCreateSchema_Idempotent(t *testing.T) {
	conn, err := Open("sqlite", openTestDB(t))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, CreateSchema(conn, "sqlite"))
	require.NoError(t, CreateSchema(conn, "sqlite"))
}
