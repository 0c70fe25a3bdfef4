package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/reach-cli/internal/db"
	"github.com/sells-group/reach-cli/internal/errs"
	"github.com/sells-group/reach-cli/internal/model"
)

// PostgresStore implements Store over a pgx pool.
type PostgresStore struct {
	pool    db.Pool
	tables  Tables
	valid   map[string]bool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, tables Tables) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	s := newPostgres(pool, tables)
	s.closeFn = pool.Close
	return s, nil
}

func newPostgres(pool db.Pool, tables Tables) *PostgresStore {
	valid := map[string]bool{}
	for _, t := range tables.Geocodable() {
		valid[t] = true
	}
	return &PostgresStore{pool: pool, tables: tables, valid: valid}
}

// checkTable guards dynamic table interpolation against names outside
// the configured set.
func (s *PostgresStore) checkTable(table string) error {
	if !s.valid[table] {
		return eris.Wrapf(errs.ErrValidation, "postgres: unknown table %q", table)
	}
	return nil
}

const postgresRecordTable = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT,
	address    TEXT,
	city       TEXT,
	state      TEXT,
	zip_code   TEXT,
	latitude   DOUBLE PRECISION,
	longitude  DOUBLE PRECISION,
	error      TEXT,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_name ON %[1]s(name);
`

const postgresIsochroneTable = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	state       TEXT NOT NULL,
	zip_code    TEXT NOT NULL,
	group_index INTEGER NOT NULL,
	value       DOUBLE PRECISION NOT NULL,
	center      TEXT NOT NULL,
	geometry    TEXT NOT NULL,
	metadata    JSONB,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (name, group_index, value)
);
`

// Migrate creates the configured tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, t := range s.tables.Geocodable() {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf(postgresRecordTable, t)); err != nil {
			return eris.Wrapf(err, "postgres: migrate %s", t)
		}
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(postgresIsochroneTable, s.tables.Isochrones)); err != nil {
		return eris.Wrapf(err, "postgres: migrate %s", s.tables.Isochrones)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, table string) ([]model.AddressRecord, error) {
	if err := s.checkTable(table); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, name, address, city, state, zip_code, latitude, longitude, error FROM %s ORDER BY id`, table))
	if err != nil {
		return nil, eris.Wrapf(errs.ErrDataAccess, "postgres: list records from %s: %v", table, err)
	}
	defer rows.Close()

	var records []model.AddressRecord
	for rows.Next() {
		var rec model.AddressRecord
		var name, address, city, state, zipCode, recErr *string
		if err := rows.Scan(&rec.ID, &name, &address, &city, &state, &zipCode,
			&rec.Latitude, &rec.Longitude, &recErr); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		rec.Name = deref(name)
		rec.Address = deref(address)
		rec.City = deref(city)
		rec.State = deref(state)
		rec.ZipCode = deref(zipCode)
		rec.Error = deref(recErr)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate records")
	}
	return records, nil
}

func (s *PostgresStore) UpdateRecordGeocode(ctx context.Context, table string, rec model.AddressRecord) error {
	if err := s.checkTable(table); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET latitude = $1, longitude = $2, error = $3, updated_at = now() WHERE id = $4`, table),
		rec.Latitude, rec.Longitude, rec.Error, rec.ID)
	if err != nil {
		return eris.Wrapf(errs.ErrDataAccess, "postgres: update record %s: %v", rec.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListCenters(ctx context.Context) ([]model.Center, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT name, state, zip_code, longitude, latitude FROM %s ORDER BY name`, s.tables.Centers))
	if err != nil {
		return nil, eris.Wrapf(errs.ErrDataAccess, "postgres: list centers: %v", err)
	}
	defer rows.Close()

	var centers []model.Center
	for rows.Next() {
		var c model.Center
		var state, zipCode *string
		var lon, lat *float64
		if err := rows.Scan(&c.Name, &state, &zipCode, &lon, &lat); err != nil {
			return nil, eris.Wrap(err, "postgres: scan center")
		}
		if lon == nil || lat == nil {
			return nil, eris.Wrapf(errs.ErrValidation, "postgres: center %q has missing coordinates", c.Name)
		}
		c.State = deref(state)
		c.ZipCode = deref(zipCode)
		c.Longitude = *lon
		c.Latitude = *lat
		centers = append(centers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate centers")
	}
	if len(centers) == 0 {
		return nil, eris.Wrapf(errs.ErrValidation, "postgres: center table %s is empty", s.tables.Centers)
	}
	return centers, nil
}

func (s *PostgresStore) GetCenter(ctx context.Context, name string) (*model.Center, error) {
	var c model.Center
	var state, zipCode *string
	var lon, lat *float64
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT name, state, zip_code, longitude, latitude FROM %s WHERE name = $1`, s.tables.Centers),
		name).Scan(&c.Name, &state, &zipCode, &lon, &lat)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(errs.ErrDataAccess, "postgres: get center %q: %v", name, err)
	}
	c.State = deref(state)
	c.ZipCode = deref(zipCode)
	if lon != nil {
		c.Longitude = *lon
	}
	if lat != nil {
		c.Latitude = *lat
	}
	return &c, nil
}

func (s *PostgresStore) FindIsochrone(ctx context.Context, key model.IsochroneKey) (string, bool, error) {
	var id string
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT id FROM %s WHERE name = $1 AND group_index = $2 AND value = $3`, s.tables.Isochrones),
		key.Name, key.GroupIndex, key.Value).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrapf(errs.ErrDataAccess, "postgres: find isochrone: %v", err)
	}
	return id, true, nil
}

func (s *PostgresStore) InsertIsochrone(ctx context.Context, rec model.IsochroneRecord) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal metadata")
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (name, state, zip_code, group_index, value, center, geometry, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.tables.Isochrones),
		rec.Name, rec.State, rec.ZipCode, rec.GroupIndex, rec.Value,
		rec.CenterWKT, rec.GeometryWKT, metadata)
	if err != nil {
		return eris.Wrapf(errs.ErrDataAccess, "postgres: insert isochrone: %v", err)
	}
	return nil
}

func (s *PostgresStore) UpdateIsochrone(ctx context.Context, id string, rec model.IsochroneRecord) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal metadata")
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET name = $1, state = $2, zip_code = $3, group_index = $4, value = $5,
		 center = $6, geometry = $7, metadata = $8, updated_at = now() WHERE id = $9`, s.tables.Isochrones),
		rec.Name, rec.State, rec.ZipCode, rec.GroupIndex, rec.Value,
		rec.CenterWKT, rec.GeometryWKT, metadata, id)
	if err != nil {
		return eris.Wrapf(errs.ErrDataAccess, "postgres: update isochrone %s: %v", id, err)
	}
	return nil
}

func (s *PostgresStore) HasIsochrones(ctx context.Context) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s)`, s.tables.Isochrones)).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(errs.ErrDataAccess, "postgres: check isochrones: %v", err)
	}
	return exists, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
