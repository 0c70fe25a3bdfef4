package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reach-cli/internal/errs"
	"github.com/sells-group/reach-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "reach.db")
	s, err := NewSQLite(dsn, testTables())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedRecord(t *testing.T, s *SQLiteStore, table, id, name, city, state, zip string) {
	t.Helper()
	_, err := s.db.Exec(
		`INSERT INTO `+table+` (id, name, address, city, state, zip_code) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, "1 Main St", city, state, zip)
	require.NoError(t, err)
}

func TestSQLiteStore_RecordsRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	seedRecord(t, s, "locations", "r1", "Joplin Office", "Joplin", "MO", "64801")

	records, err := s.ListRecords(ctx, "locations")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].HasCoordinates())

	lat, lon := 37.08, -94.51
	records[0].SetCoordinates(&lat, &lon)
	records[0].Error = ""
	require.NoError(t, s.UpdateRecordGeocode(ctx, "locations", records[0]))

	records, err = s.ListRecords(ctx, "locations")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].HasCoordinates())
	assert.InDelta(t, 37.08, *records[0].Latitude, 1e-6)
}

func TestSQLiteStore_UnknownTable(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.ListRecords(context.Background(), "isochrones")
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
}

func TestSQLiteStore_Centers(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	seedRecord(t, s, "city_centers", "c1", "Joplin", "Joplin", "MO", "64801")
	seedRecord(t, s, "city_centers", "c2", "Tulsa", "Tulsa", "OK", "74103")

	lat, lon := 37.08, -94.51
	require.NoError(t, s.UpdateRecordGeocode(ctx, "city_centers",
		model.AddressRecord{ID: "c1", Latitude: &lat, Longitude: &lon}))

	// c2 still lacks coordinates; the whole listing fails.
	_, err := s.ListCenters(ctx)
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
	assert.Contains(t, err.Error(), "Tulsa")

	require.NoError(t, s.UpdateRecordGeocode(ctx, "city_centers",
		model.AddressRecord{ID: "c2", Latitude: &lat, Longitude: &lon}))

	centers, err := s.ListCenters(ctx)
	require.NoError(t, err)
	require.Len(t, centers, 2)
	assert.Equal(t, "Joplin", centers[0].Name)
	assert.Equal(t, "MO", centers[0].State)

	c, err := s.GetCenter(ctx, "Joplin")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "64801", c.ZipCode)

	c, err = s.GetCenter(ctx, "Nowhere")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestSQLiteStore_ListCenters_Empty(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.ListCenters(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
}

func isoRecord(value float64) model.IsochroneRecord {
	return model.IsochroneRecord{
		IsochroneKey: model.IsochroneKey{Name: "Joplin", GroupIndex: 0, Value: value},
		State:        "MO",
		ZipCode:      "64801",
		CenterWKT:    "POINT (-94.51 37.09)",
		GeometryWKT:  "POLYGON ((-94.6 37, -94.4 37, -94.5 37.2, -94.6 37))",
		Metadata:     map[string]any{"attribution": "openrouteservice.org"},
	}
}

func TestSQLiteStore_IsochroneUpsertCycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	exists, err := s.HasIsochrones(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	key := model.IsochroneKey{Name: "Joplin", GroupIndex: 0, Value: 1800}
	_, found, err := s.FindIsochrone(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.InsertIsochrone(ctx, isoRecord(1800)))

	id, found, err := s.FindIsochrone(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	require.NotEmpty(t, id)

	exists, err = s.HasIsochrones(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	// Update replaces in place; the key still maps to the same row.
	updated := isoRecord(1800)
	updated.GeometryWKT = "POLYGON ((-95 36, -94 36, -94.5 38, -95 36))"
	require.NoError(t, s.UpdateIsochrone(ctx, id, updated))

	id2, found, err := s.FindIsochrone(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, id2)

	var geometry string
	require.NoError(t, s.db.QueryRow(`SELECT geometry FROM isochrones WHERE id = ?`, id).Scan(&geometry))
	assert.Equal(t, updated.GeometryWKT, geometry)
}

func TestSQLiteStore_IsochroneKeyUnique(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.InsertIsochrone(ctx, isoRecord(1800)))
	err := s.InsertIsochrone(ctx, isoRecord(1800))
	require.Error(t, err, "duplicate (name, group_index, value) rejected")

	require.NoError(t, s.InsertIsochrone(ctx, isoRecord(3600)))
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}
