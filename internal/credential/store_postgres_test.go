package credential

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columnDef = regexp.MustCompile(`(?m)^\s{4}([a-z0-9_]+)\s`)

// migratedColumns extracts the column names of one CREATE TABLE block from the
// migration file.
func migratedColumns(t *testing.T, table string) map[string]bool {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_credentials.sql"))
	require.NoError(t, err)

	_, after, found := strings.Cut(string(raw), "CREATE TABLE "+table+" (")
	require.True(t, found, "migration must create table %s", table)
	block, _, found := strings.Cut(after, ");")
	require.True(t, found)

	cols := make(map[string]bool)
	for _, m := range columnDef.FindAllStringSubmatch(block, -1) {
		cols[m[1]] = true
	}
	return cols
}

// The column lists the store interpolates into its SQL must name columns the
// migration actually creates; a mismatch fails every statement at runtime with
// SQLSTATE 42703.
func TestPostgresColumnsMatchMigration(t *testing.T) {
	credCols := migratedColumns(t, "credentials")
	for _, col := range strings.Split(credentialColumns, ",") {
		col = strings.TrimSpace(col)
		assert.True(t, credCols[col], "credentials column %q is not in the migration", col)
	}

	attCols := migratedColumns(t, "attachments")
	for _, col := range []string{
		"id", "credential_id", "file_name", "content_type", "size_bytes",
		"sha256_hash", "is_primary", "storage_path", "created_at",
	} {
		assert.True(t, attCols[col], "attachments column %q is not in the migration", col)
	}
}
