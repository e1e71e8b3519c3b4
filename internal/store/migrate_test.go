package store

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreOrderedAndUnique(t *testing.T) {
	seen := map[string]bool{}
	prev := ""
	for _, m := range migrations {
		require.False(t, seen[m.name], "duplicate migration %s", m.name)
		seen[m.name] = true
		assert.Greater(t, m.name, prev, "migrations must sort in apply order")
		prev = m.name
	}
}

func TestLegacyColumnsCoverEveryField(t *testing.T) {
	canonical := map[string]bool{}
	for _, c := range vendorTable {
		canonical[c.name] = true
	}
	require.Len(t, legacyColumns, 16)
	for i, r := range legacyColumns {
		assert.Equal(t, "field_"+strconv.Itoa(i), r.legacy)
		assert.True(t, canonical[r.canonical], "%s maps to unknown column %s", r.legacy, r.canonical)
	}
	assert.Equal(t, "name", legacyColumns[0].canonical)
	assert.Equal(t, "transport_name", legacyColumns[1].canonical)
	assert.Equal(t, "notes", legacyColumns[15].canonical)
}

func TestCreateTableSQL(t *testing.T) {
	sql := createTableSQL()
	assert.True(t, strings.HasPrefix(sql, "CREATE TABLE IF NOT EXISTS vendors ("))
	assert.Contains(t, sql, "id BIGSERIAL PRIMARY KEY")
	assert.Contains(t, sql, "notes JSONB NOT NULL DEFAULT '[]'::jsonb")
	assert.Contains(t, sql, "CHECK (return_service IN ('Y', 'N'))")
}

func TestStampExpr(t *testing.T) {
	assert.Equal(t, "COALESCE(updated_at, created_at)", stampExpr(map[string]string{"updated_at": "", "created_at": ""}))
	assert.Equal(t, "COALESCE(created_at)", stampExpr(map[string]string{"created_at": ""}))
	assert.Equal(t, "NULL::timestamptz", stampExpr(map[string]string{}))
}

func TestCopyLegacySQL(t *testing.T) {
	cols := map[string]string{"created_at": "timestamp with time zone"}

	plain := copyLegacySQL("field_5", "vendor_city", "character varying", cols)
	assert.Equal(t, `UPDATE vendors SET "vendor_city" = "field_5"::text WHERE "vendor_city" IS NULL AND "field_5" IS NOT NULL`, plain)

	flag := copyLegacySQL("field_11", "return_service", "character", cols)
	assert.Contains(t, flag, `SET "return_service" = 'Y'`)
	assert.Contains(t, flag, `upper(btrim("field_11"::text)) IN ('Y', 'YES')`)

	notes := copyLegacySQL("field_15", "notes", "jsonb", cols)
	assert.Contains(t, notes, `vendor_notes_to_jsonb("field_15"::text, COALESCE(created_at))`)
	assert.Contains(t, notes, `"notes" = '[]'::jsonb`)

	textNotes := copyLegacySQL("field_15", "notes", "text", cols)
	assert.Contains(t, textNotes, `"notes" IS NULL`)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "CREATE TABLE x (", firstLine("\n\tCREATE TABLE x (\n\tid int\n)"))
	assert.Equal(t, "DROP TABLE x", firstLine("DROP TABLE x"))
}
