package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

// ErrDuplicatesPresent stops the unique index migration while the table
// still holds case-insensitive (name, transport_name) duplicates.
var ErrDuplicatesPresent = errors.New("vendors table contains duplicate name/transport pairs")

type migration struct {
	name string
	up   func(ctx context.Context, tx pgx.Tx) error
}

// migrations run in order; each one is recorded in schema_migrations and
// never run again once recorded.
var migrations = []migration{
	{"0001_create_vendors", createVendors},
	{"0002_rename_legacy_columns", renameLegacyColumns},
	{"0003_ensure_columns", ensureColumns},
	{"0004_normalize_notes", normalizeNotes},
	{"0005_touch_updated_at", touchUpdatedAt},
	{"0006_unique_name_transport", uniqueNameTransport},
}

type column struct {
	name   string
	create string // type and constraints used by CREATE TABLE
	add    string // type and constraints used when added to an existing table
}

var vendorTable = []column{
	{"id", "BIGSERIAL PRIMARY KEY", "BIGSERIAL"},
	{"name", "VARCHAR(255) NOT NULL", "VARCHAR(255)"},
	{"transport_name", "VARCHAR(255) NOT NULL", "VARCHAR(255)"},
	{"visiting_card", "VARCHAR(255)", "VARCHAR(255)"},
	{"owner_broker", "VARCHAR(255)", "VARCHAR(255)"},
	{"vendor_state", "VARCHAR(255)", "VARCHAR(255)"},
	{"vendor_city", "VARCHAR(255)", "VARCHAR(255)"},
	{"whatsapp_number", "VARCHAR(20)", "VARCHAR(20)"},
	{"alternate_number", "VARCHAR(20)", "VARCHAR(20)"},
	{"vehicle_type", "VARCHAR(255)", "VARCHAR(255)"},
	{"main_service_state", "VARCHAR(255)", "VARCHAR(255)"},
	{"main_service_city", "VARCHAR(255)", "VARCHAR(255)"},
	{"return_service", "CHAR(1) NOT NULL DEFAULT 'N' CHECK (return_service IN ('Y', 'N'))", "CHAR(1) NOT NULL DEFAULT 'N'"},
	{"any_association", "CHAR(1) NOT NULL DEFAULT 'N' CHECK (any_association IN ('Y', 'N'))", "CHAR(1) NOT NULL DEFAULT 'N'"},
	{"association_name", "VARCHAR(255)", "VARCHAR(255)"},
	{"verification", "VARCHAR(255)", "VARCHAR(255)"},
	{"notes", "JSONB NOT NULL DEFAULT '[]'::jsonb", "JSONB NOT NULL DEFAULT '[]'::jsonb"},
	{"created_at", "TIMESTAMPTZ NOT NULL DEFAULT now()", "TIMESTAMPTZ NOT NULL DEFAULT now()"},
	{"updated_at", "TIMESTAMPTZ NOT NULL DEFAULT now()", "TIMESTAMPTZ NOT NULL DEFAULT now()"},
}

// legacyColumns is the positional layout written by the early schema-less
// spreadsheet import. The mapping is fixed; do not reorder.
var legacyColumns = []struct{ legacy, canonical string }{
	{"field_0", "name"},
	{"field_1", "transport_name"},
	{"field_2", "visiting_card"},
	{"field_3", "owner_broker"},
	{"field_4", "vendor_state"},
	{"field_5", "vendor_city"},
	{"field_6", "whatsapp_number"},
	{"field_7", "alternate_number"},
	{"field_8", "vehicle_type"},
	{"field_9", "main_service_state"},
	{"field_10", "main_service_city"},
	{"field_11", "return_service"},
	{"field_12", "any_association"},
	{"field_13", "association_name"},
	{"field_14", "verification"},
	{"field_15", "notes"},
}

var flagColumns = map[string]bool{"return_service": true, "any_association": true}

// notesToJSONBFunc converts one stored notes value to a jsonb array: blank
// becomes [], a JSON array is kept, anything else becomes a single note.
const notesToJSONBFunc = `
CREATE OR REPLACE FUNCTION vendor_notes_to_jsonb(raw text, stamp timestamptz) RETURNS jsonb AS $$
DECLARE
	parsed jsonb;
BEGIN
	IF raw IS NULL OR btrim(raw) = '' THEN
		RETURN '[]'::jsonb;
	END IF;
	BEGIN
		parsed := raw::jsonb;
	EXCEPTION WHEN others THEN
		parsed := NULL;
	END;
	IF parsed IS NOT NULL THEN
		IF jsonb_typeof(parsed) = 'array' THEN
			RETURN parsed;
		ELSIF jsonb_typeof(parsed) = 'null' THEN
			RETURN '[]'::jsonb;
		ELSIF jsonb_typeof(parsed) = 'string' THEN
			raw := parsed #>> '{}';
		END IF;
		IF btrim(raw) = '' THEN
			RETURN '[]'::jsonb;
		END IF;
	END IF;
	RETURN jsonb_build_array(jsonb_build_object(
		'comment', btrim(raw),
		'timestamp', to_jsonb(COALESCE(stamp, now()))));
END
$$ LANGUAGE plpgsql`

// Migrate brings the vendors table to its current shape. It is safe to call
// on every start. A failing step is rolled back, stops the remaining steps
// and is returned; the caller decides whether to keep serving.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return classify(fmt.Errorf("create schema_migrations table: %w", err))
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.name] {
			s.log.Debug().Str("migration", m.name).Msg("skipping migration (already applied)")
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			ev := s.log.Error()
			if errors.Is(err, ErrDuplicatesPresent) {
				ev = s.log.Warn()
			}
			ev.Err(err).Str("migration", m.name).Msg("migration failed")
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		s.log.Info().Str("migration", m.name).Msg("migration applied")
	}
	return nil
}

// AppliedMigrations lists the recorded migration names in order.
func (s *Store) AppliedMigrations(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT name FROM schema_migrations ORDER BY name")
	if err != nil {
		return nil, classify(fmt.Errorf("read schema_migrations: %w", err))
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(fmt.Errorf("read schema_migrations: %w", err))
	}
	return names, nil
}

func (s *Store) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	names, err := s.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(names))
	for _, n := range names {
		applied[n] = true
	}
	return applied, nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := m.up(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES ($1)", m.name); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit(ctx)
}

func execAll(ctx context.Context, q querier, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}

// columnTypes maps column name to information_schema data_type.
func columnTypes(ctx context.Context, q querier, table string) (map[string]string, error) {
	rows, err := q.Query(ctx, `
		SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := map[string]string{}
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, err
		}
		cols[name] = typ
	}
	return cols, rows.Err()
}

func createTableSQL() string {
	defs := make([]string, 0, len(vendorTable))
	for _, c := range vendorTable {
		defs = append(defs, "\t"+c.name+" "+c.create)
	}
	return "CREATE TABLE IF NOT EXISTS vendors (\n" + strings.Join(defs, ",\n") + "\n)"
}

func createVendors(ctx context.Context, tx pgx.Tx) error {
	return execAll(ctx, tx, createTableSQL())
}

// stampExpr picks the best available row timestamp for synthesized notes.
func stampExpr(cols map[string]string) string {
	var parts []string
	for _, c := range []string{"updated_at", "created_at"} {
		if _, ok := cols[c]; ok {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return "NULL::timestamptz"
	}
	return "COALESCE(" + strings.Join(parts, ", ") + ")"
}

// copyLegacySQL copies legacy values into rows whose canonical value is
// missing. canonicalType is the information_schema data_type of the target.
func copyLegacySQL(legacy, canonical, canonicalType string, cols map[string]string) string {
	l, c := pq.QuoteIdentifier(legacy), pq.QuoteIdentifier(canonical)
	switch {
	case canonical == "notes" && canonicalType == "jsonb":
		return fmt.Sprintf(
			"UPDATE vendors SET %[2]s = vendor_notes_to_jsonb(%[1]s::text, %[3]s) "+
				"WHERE (%[2]s IS NULL OR %[2]s = '[]'::jsonb) AND NULLIF(btrim(%[1]s::text), '') IS NOT NULL",
			l, c, stampExpr(cols))
	case flagColumns[canonical]:
		return fmt.Sprintf(
			"UPDATE vendors SET %[2]s = 'Y' "+
				"WHERE (%[2]s IS NULL OR %[2]s <> 'Y') AND upper(btrim(%[1]s::text)) IN ('Y', 'YES')",
			l, c)
	default:
		return fmt.Sprintf("UPDATE vendors SET %[2]s = %[1]s::text WHERE %[2]s IS NULL AND %[1]s IS NOT NULL", l, c)
	}
}

// flagFromLegacySQL rewrites free-text legacy flags ("yes", "Y ", "no") to Y/N.
func flagFromLegacySQL(col string) string {
	return fmt.Sprintf(
		"UPDATE vendors SET %[1]s = CASE WHEN upper(btrim(%[1]s::text)) IN ('Y', 'YES') THEN 'Y' ELSE 'N' END",
		pq.QuoteIdentifier(col))
}

func renameLegacyColumns(ctx context.Context, tx pgx.Tx) error {
	cols, err := columnTypes(ctx, tx, "vendors")
	if err != nil {
		return err
	}
	if err := execAll(ctx, tx, notesToJSONBFunc); err != nil {
		return err
	}

	for _, r := range legacyColumns {
		legacyType, hasLegacy := cols[r.legacy]
		if !hasLegacy {
			continue
		}
		canonicalType, hasCanonical := cols[r.canonical]
		if !hasCanonical {
			stmt := fmt.Sprintf("ALTER TABLE vendors RENAME COLUMN %s TO %s",
				pq.QuoteIdentifier(r.legacy), pq.QuoteIdentifier(r.canonical))
			stmts := []string{stmt}
			if flagColumns[r.canonical] {
				stmts = append(stmts, flagFromLegacySQL(r.canonical))
			}
			if err := execAll(ctx, tx, stmts...); err != nil {
				return err
			}
			cols[r.canonical] = legacyType
			delete(cols, r.legacy)
			continue
		}

		err := execAll(ctx, tx,
			copyLegacySQL(r.legacy, r.canonical, canonicalType, cols),
			"ALTER TABLE vendors DROP COLUMN "+pq.QuoteIdentifier(r.legacy),
		)
		if err != nil {
			return err
		}
		delete(cols, r.legacy)
	}
	return nil
}

func ensureColumns(ctx context.Context, tx pgx.Tx) error {
	stmts := make([]string, 0, len(vendorTable)+3)
	for _, c := range vendorTable {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE vendors ADD COLUMN IF NOT EXISTS %s %s", pq.QuoteIdentifier(c.name), c.add))
	}
	for c := range flagColumns {
		stmts = append(stmts, fmt.Sprintf(
			"UPDATE vendors SET %[1]s = 'N' WHERE %[1]s IS NULL OR btrim(%[1]s::text) NOT IN ('Y', 'N')", pq.QuoteIdentifier(c)))
	}
	if err := execAll(ctx, tx, stmts...); err != nil {
		return err
	}

	var hasPK bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM pg_constraint
		WHERE conrelid = 'vendors'::regclass AND contype = 'p')`).Scan(&hasPK)
	if err != nil {
		return fmt.Errorf("probe primary key: %w", err)
	}
	if !hasPK {
		if err := execAll(ctx, tx, "ALTER TABLE vendors ADD PRIMARY KEY (id)"); err != nil {
			return err
		}
	}
	return execAll(ctx, tx, "CREATE INDEX IF NOT EXISTS vendors_created_at_idx ON vendors (created_at DESC)")
}

func normalizeNotes(ctx context.Context, tx pgx.Tx) error {
	cols, err := columnTypes(ctx, tx, "vendors")
	if err != nil {
		return err
	}
	typ, ok := cols["notes"]
	if !ok {
		return execAll(ctx, tx, "ALTER TABLE vendors ADD COLUMN notes JSONB NOT NULL DEFAULT '[]'::jsonb")
	}
	if err := execAll(ctx, tx, notesToJSONBFunc); err != nil {
		return err
	}

	stamp := stampExpr(cols)
	var stmts []string
	if typ != "jsonb" {
		stmts = append(stmts,
			"ALTER TABLE vendors ALTER COLUMN notes DROP DEFAULT",
			"ALTER TABLE vendors ALTER COLUMN notes TYPE JSONB USING vendor_notes_to_jsonb(notes::text, "+stamp+")",
		)
	} else {
		stmts = append(stmts,
			"UPDATE vendors SET notes = vendor_notes_to_jsonb(notes #>> '{}', "+stamp+") "+
				"WHERE notes IS NULL OR jsonb_typeof(notes) <> 'array'",
		)
	}
	stmts = append(stmts,
		"UPDATE vendors SET notes = '[]'::jsonb WHERE notes IS NULL",
		"ALTER TABLE vendors ALTER COLUMN notes SET DEFAULT '[]'::jsonb",
		"ALTER TABLE vendors ALTER COLUMN notes SET NOT NULL",
	)
	return execAll(ctx, tx, stmts...)
}

func touchUpdatedAt(ctx context.Context, tx pgx.Tx) error {
	return execAll(ctx, tx, `
CREATE OR REPLACE FUNCTION vendors_touch_updated_at() RETURNS trigger AS $$
BEGIN
	NEW.updated_at := now();
	RETURN NEW;
END
$$ LANGUAGE plpgsql`,
		"DROP TRIGGER IF EXISTS vendors_touch_updated_at ON vendors",
		"CREATE TRIGGER vendors_touch_updated_at BEFORE UPDATE ON vendors FOR EACH ROW EXECUTE FUNCTION vendors_touch_updated_at()",
	)
}

func uniqueNameTransport(ctx context.Context, tx pgx.Tx) error {
	var groups int
	err := tx.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT 1 FROM vendors
			GROUP BY LOWER(name), LOWER(transport_name)
			HAVING count(*) > 1
		) d`).Scan(&groups)
	if err != nil {
		return fmt.Errorf("count duplicates: %w", err)
	}
	if groups > 0 {
		return fmt.Errorf("%d groups: %w", groups, ErrDuplicatesPresent)
	}
	return execAll(ctx, tx,
		"CREATE UNIQUE INDEX IF NOT EXISTS vendors_name_transport_lower_key ON vendors (LOWER(name), LOWER(transport_name))")
}
