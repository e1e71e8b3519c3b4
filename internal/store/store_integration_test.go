package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transport-vendor-api/internal/models"
	"transport-vendor-api/internal/store"
	"transport-vendor-api/internal/testutil"
)

func strp(s string) *string { return &s }

func TestStoreCRUD(t *testing.T) {
	testutil.RequireIntegration(t)
	st, _ := testutil.NewTestStore(t)
	ctx := context.Background()

	id, err := st.Create(ctx, models.VendorInput{Name: " John Doe ", TransportName: "ABC Transport", VendorCity: strp("Chennai"), WhatsappNumber: strp("  ")})
	require.NoError(t, err)

	v, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", v.Name)
	assert.Equal(t, "N", v.ReturnService)
	assert.Nil(t, v.WhatsappNumber)
	assert.Empty(t, v.Notes)
	assert.NotNil(t, v.Notes)

	_, err = st.Create(ctx, models.VendorInput{Name: "john doe", TransportName: "abc transport"})
	var dup *models.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, id, dup.ExistingID)

	_, err = st.Create(ctx, models.VendorInput{Name: "", TransportName: "x"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	list, err := st.List(ctx, models.ListFilter{Query: "chen"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, st.Delete(ctx, id))
	assert.ErrorIs(t, st.Delete(ctx, id), models.ErrNotFound)
	_, err = st.Get(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)

	list, err = st.List(ctx, models.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateKeepsNotes(t *testing.T) {
	testutil.RequireIntegration(t)
	st, _ := testutil.NewTestStore(t)
	ctx := context.Background()

	id, err := st.Create(ctx, models.VendorInput{Name: "John Doe", TransportName: "ABC Transport"})
	require.NoError(t, err)
	other, err := st.Create(ctx, models.VendorInput{Name: "Jane", TransportName: "XYZ"})
	require.NoError(t, err)

	notes, err := st.AppendNote(ctx, id, "called, interested")
	require.NoError(t, err)
	require.Len(t, notes, 1)

	v, err := st.Update(ctx, id, models.VendorInput{Name: "John Doe", TransportName: "ABC Transport", VehicleType: strp("Truck")})
	require.NoError(t, err)
	require.NotNil(t, v.VehicleType)
	assert.Equal(t, "Truck", *v.VehicleType)
	require.Len(t, v.Notes, 1)
	assert.Equal(t, "called, interested", v.Notes[0].Comment)
	assert.True(t, notes[0].Timestamp.Equal(v.Notes[0].Timestamp))

	_, err = st.Update(ctx, other, models.VendorInput{Name: "JOHN DOE", TransportName: "abc transport"})
	var dup *models.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, id, dup.ExistingID)

	_, err = st.Update(ctx, 999999, models.VendorInput{Name: "A", TransportName: "B"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAppendNote(t *testing.T) {
	testutil.RequireIntegration(t)
	st, _ := testutil.NewTestStore(t)
	ctx := context.Background()

	id, err := st.Create(ctx, models.VendorInput{Name: "A", TransportName: "B"})
	require.NoError(t, err)

	_, err = st.AppendNote(ctx, id, "   ")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	_, err = st.AppendNote(ctx, 999999, "hello")
	assert.ErrorIs(t, err, models.ErrNotFound)

	var notes []models.Note
	for _, c := range []string{"one", "two", "three"} {
		notes, err = st.AppendNote(ctx, id, c)
		require.NoError(t, err)
	}
	require.Len(t, notes, 3)
	for i, c := range []string{"one", "two", "three"} {
		assert.Equal(t, c, notes[i].Comment)
		if i > 0 {
			assert.False(t, notes[i].Timestamp.Before(notes[i-1].Timestamp))
		}
	}

	t.Run("concurrent appends are not lost", func(t *testing.T) {
		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := st.AppendNote(ctx, id, "concurrent")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		v, err := st.Get(ctx, id)
		require.NoError(t, err)
		assert.Len(t, v.Notes, 3+n)
	})
}

func TestLegacyScalarNotesReadAsSequence(t *testing.T) {
	testutil.RequireIntegration(t)
	st, pool := testutil.NewTestStore(t)
	ctx := context.Background()

	var id int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO vendors (name, transport_name, notes) VALUES ('A', 'B', to_jsonb('called last week'::text)) RETURNING id`).Scan(&id))

	v, err := st.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, v.Notes, 1)
	assert.Equal(t, "called last week", v.Notes[0].Comment)

	notes, err := st.AppendNote(ctx, id, "follow up")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "called last week", notes[0].Comment)
	assert.Equal(t, "follow up", notes[1].Comment)
}

func TestMigrateLegacyLayout(t *testing.T) {
	testutil.RequireIntegration(t)
	pool := testutil.NewTestPool(t)
	testutil.ResetSchema(t, pool)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `CREATE TABLE vendors (
		id SERIAL PRIMARY KEY,
		field_0 TEXT, field_1 TEXT, field_2 TEXT, field_3 TEXT, field_4 TEXT,
		field_5 TEXT, field_6 TEXT, field_7 TEXT, field_8 TEXT, field_9 TEXT,
		field_10 TEXT, field_11 TEXT, field_12 TEXT, field_13 TEXT, field_14 TEXT,
		field_15 TEXT,
		created_at TIMESTAMPTZ DEFAULT now()
	)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO vendors (field_0, field_1, field_5, field_11, field_12, field_15) VALUES
		('John Doe', 'ABC', 'Chennai', 'yes', 'n', 'called once'),
		('Jane', 'XYZ', NULL, 'Y', NULL, '[{"comment":"hi","timestamp":"2024-01-02T03:04:05Z"}]'),
		('Raj', 'Fast', NULL, NULL, NULL, NULL)`)
	require.NoError(t, err)

	st := store.New(pool, zerolog.Nop())
	require.NoError(t, st.Migrate(ctx))

	list, err := st.List(ctx, models.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	byName := map[string]models.Vendor{}
	for _, v := range list {
		byName[v.Name] = v
	}

	john := byName["John Doe"]
	assert.Equal(t, "ABC", john.TransportName)
	require.NotNil(t, john.VendorCity)
	assert.Equal(t, "Chennai", *john.VendorCity)
	assert.Equal(t, "Y", john.ReturnService)
	assert.Equal(t, "N", john.AnyAssociation)
	require.Len(t, john.Notes, 1)
	assert.Equal(t, "called once", john.Notes[0].Comment)

	jane := byName["Jane"]
	require.Len(t, jane.Notes, 1)
	assert.Equal(t, "hi", jane.Notes[0].Comment)
	assert.True(t, jane.Notes[0].Timestamp.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	assert.Empty(t, byName["Raj"].Notes)

	var dataType string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT data_type FROM information_schema.columns WHERE table_name = 'vendors' AND column_name = 'notes'`).Scan(&dataType))
	assert.Equal(t, "jsonb", dataType)

	var legacyLeft int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM information_schema.columns WHERE table_name = 'vendors' AND column_name LIKE 'field\_%'`).Scan(&legacyLeft))
	assert.Zero(t, legacyLeft)

	// a second run is a no-op
	require.NoError(t, st.Migrate(ctx))
	applied, err := st.AppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 6)

	_, err = st.Create(ctx, models.VendorInput{Name: "JOHN DOE", TransportName: "abc"})
	var dup *models.DuplicateError
	assert.ErrorAs(t, err, &dup)
}

func TestMigrateMergesWhenBothColumnsExist(t *testing.T) {
	testutil.RequireIntegration(t)
	pool := testutil.NewTestPool(t)
	testutil.ResetSchema(t, pool)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `CREATE TABLE vendors (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255), transport_name VARCHAR(255),
		field_5 TEXT, vendor_city VARCHAR(255),
		notes JSONB DEFAULT '[]'::jsonb, field_15 TEXT,
		created_at TIMESTAMPTZ DEFAULT now(), updated_at TIMESTAMPTZ DEFAULT now()
	)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO vendors (name, transport_name, field_5, vendor_city, field_15) VALUES
		('A', 'One', 'Pune', NULL, 'legacy note'),
		('B', 'Two', 'Pune', 'Mumbai', NULL)`)
	require.NoError(t, err)

	st := store.New(pool, zerolog.Nop())
	require.NoError(t, st.Migrate(ctx))

	list, err := st.List(ctx, models.ListFilter{})
	require.NoError(t, err)
	for _, v := range list {
		require.NotNil(t, v.VendorCity)
		switch v.Name {
		case "A":
			assert.Equal(t, "Pune", *v.VendorCity)
			require.Len(t, v.Notes, 1)
			assert.Equal(t, "legacy note", v.Notes[0].Comment)
		case "B":
			assert.Equal(t, "Mumbai", *v.VendorCity, "existing canonical values win")
		}
	}
}

func TestMigrateSkipsUniqueIndexWithDuplicates(t *testing.T) {
	testutil.RequireIntegration(t)
	pool := testutil.NewTestPool(t)
	testutil.ResetSchema(t, pool)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `CREATE TABLE vendors (id SERIAL PRIMARY KEY, name TEXT, transport_name TEXT)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO vendors (name, transport_name) VALUES ('A', 'One'), ('a', 'ONE')`)
	require.NoError(t, err)

	st := store.New(pool, zerolog.Nop())
	err = st.Migrate(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrDuplicatesPresent))

	applied, err := st.AppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 5)

	// the application still works without the index
	list, err := st.List(ctx, models.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAppendNoteOnTextColumn(t *testing.T) {
	testutil.RequireIntegration(t)
	pool := testutil.NewTestPool(t)
	testutil.ResetSchema(t, pool)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `CREATE TABLE vendors (
		id SERIAL PRIMARY KEY, name TEXT, transport_name TEXT, notes TEXT,
		created_at TIMESTAMPTZ DEFAULT now(), updated_at TIMESTAMPTZ DEFAULT now()
	)`)
	require.NoError(t, err)
	var id int64
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO vendors (name, transport_name, notes) VALUES ('A', 'B', 'old text') RETURNING id`).Scan(&id))

	st := store.New(pool, zerolog.Nop())
	notes, err := st.AppendNote(ctx, id, "new")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "old text", notes[0].Comment)
	assert.Equal(t, "new", notes[1].Comment)
}

func TestAppendNoteOnTextColumnKeepsUnreadableEntries(t *testing.T) {
	testutil.RequireIntegration(t)
	pool := testutil.NewTestPool(t)
	testutil.ResetSchema(t, pool)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `CREATE TABLE vendors (
		id SERIAL PRIMARY KEY, name TEXT, transport_name TEXT, notes TEXT,
		created_at TIMESTAMPTZ DEFAULT now(), updated_at TIMESTAMPTZ DEFAULT now()
	)`)
	require.NoError(t, err)
	var id int64
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO vendors (name, transport_name, notes)
		VALUES ('A', 'B', '[{"comment":"first call","timestamp":"not a date"},{"comment":42,"timestamp":true}]')
		RETURNING id`).Scan(&id))

	st := store.New(pool, zerolog.Nop())
	_, err = st.AppendNote(ctx, id, "new")
	require.NoError(t, err)

	var raw string
	require.NoError(t, pool.QueryRow(ctx, `SELECT notes FROM vendors WHERE id = $1`, id).Scan(&raw))
	notes := models.DecodeNotes(raw, time.Now())
	require.Len(t, notes, 3)
	assert.Equal(t, "first call", notes[0].Comment)
	assert.Equal(t, "42", notes[1].Comment)
	assert.Equal(t, "new", notes[2].Comment)
}

func TestPingUnreachable(t *testing.T) {
	testutil.RequireIntegration(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := store.Open(ctx, "postgres://nobody@127.0.0.1:1/none?sslmode=disable", store.Options{ConnectTimeout: time.Second})
	require.NoError(t, err, "pool creation is lazy")
	defer st.Close()

	err = st.Ping(ctx)
	var down *models.StoreUnavailableError
	require.ErrorAs(t, err, &down)
	assert.Equal(t, models.CauseConnectionRefused, down.Cause)
}
