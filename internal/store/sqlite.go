package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/reach-cli/internal/errs"
	"github.com/sells-group/reach-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db     *sql.DB
	tables Tables
	valid  map[string]bool
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, tables Tables) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}

	valid := map[string]bool{}
	for _, t := range tables.Geocodable() {
		valid[t] = true
	}
	return &SQLiteStore{db: db, tables: tables, valid: valid}, nil
}

func (s *SQLiteStore) checkTable(table string) error {
	if !s.valid[table] {
		return eris.Wrapf(errs.ErrValidation, "sqlite: unknown table %q", table)
	}
	return nil
}

const sqliteRecordTable = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id         TEXT PRIMARY KEY,
	name       TEXT,
	address    TEXT,
	city       TEXT,
	state      TEXT,
	zip_code   TEXT,
	latitude   REAL,
	longitude  REAL,
	error      TEXT,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_name ON %[1]s(name);
`

const sqliteIsochroneTable = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	state       TEXT NOT NULL,
	zip_code    TEXT NOT NULL,
	group_index INTEGER NOT NULL,
	value       REAL NOT NULL,
	center      TEXT NOT NULL,
	geometry    TEXT NOT NULL,
	metadata    TEXT,
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (name, group_index, value)
);
`

// Migrate creates the configured tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, t := range s.tables.Geocodable() {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(sqliteRecordTable, t)); err != nil {
			return eris.Wrapf(err, "sqlite: migrate %s", t)
		}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(sqliteIsochroneTable, s.tables.Isochrones)); err != nil {
		return eris.Wrapf(err, "sqlite: migrate %s", s.tables.Isochrones)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListRecords(ctx context.Context, table string) ([]model.AddressRecord, error) {
	if err := s.checkTable(table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, name, address, city, state, zip_code, latitude, longitude, error FROM %s ORDER BY id`, table))
	if err != nil {
		return nil, eris.Wrapf(errs.ErrDataAccess, "sqlite: list records from %s: %v", table, err)
	}
	defer rows.Close()

	var records []model.AddressRecord
	for rows.Next() {
		var rec model.AddressRecord
		var name, address, city, state, zipCode, recErr sql.NullString
		if err := rows.Scan(&rec.ID, &name, &address, &city, &state, &zipCode,
			&rec.Latitude, &rec.Longitude, &recErr); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		rec.Name = name.String
		rec.Address = address.String
		rec.City = city.String
		rec.State = state.String
		rec.ZipCode = zipCode.String
		rec.Error = recErr.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate records")
	}
	return records, nil
}

func (s *SQLiteStore) UpdateRecordGeocode(ctx context.Context, table string, rec model.AddressRecord) error {
	if err := s.checkTable(table); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET latitude = ?, longitude = ?, error = ?, updated_at = datetime('now') WHERE id = ?`, table),
		rec.Latitude, rec.Longitude, rec.Error, rec.ID)
	if err != nil {
		return eris.Wrapf(errs.ErrDataAccess, "sqlite: update record %s: %v", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListCenters(ctx context.Context) ([]model.Center, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT name, state, zip_code, longitude, latitude FROM %s ORDER BY name`, s.tables.Centers))
	if err != nil {
		return nil, eris.Wrapf(errs.ErrDataAccess, "sqlite: list centers: %v", err)
	}
	defer rows.Close()

	var centers []model.Center
	for rows.Next() {
		var c model.Center
		var state, zipCode sql.NullString
		var lon, lat sql.NullFloat64
		if err := rows.Scan(&c.Name, &state, &zipCode, &lon, &lat); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan center")
		}
		if !lon.Valid || !lat.Valid {
			return nil, eris.Wrapf(errs.ErrValidation, "sqlite: center %q has missing coordinates", c.Name)
		}
		c.State = state.String
		c.ZipCode = zipCode.String
		c.Longitude = lon.Float64
		c.Latitude = lat.Float64
		centers = append(centers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate centers")
	}
	if len(centers) == 0 {
		return nil, eris.Wrapf(errs.ErrValidation, "sqlite: center table %s is empty", s.tables.Centers)
	}
	return centers, nil
}

func (s *SQLiteStore) GetCenter(ctx context.Context, name string) (*model.Center, error) {
	var c model.Center
	var state, zipCode sql.NullString
	var lon, lat sql.NullFloat64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT name, state, zip_code, longitude, latitude FROM %s WHERE name = ?`, s.tables.Centers),
		name).Scan(&c.Name, &state, &zipCode, &lon, &lat)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(errs.ErrDataAccess, "sqlite: get center %q: %v", name, err)
	}
	c.State = state.String
	c.ZipCode = zipCode.String
	c.Longitude = lon.Float64
	c.Latitude = lat.Float64
	return &c, nil
}

func (s *SQLiteStore) FindIsochrone(ctx context.Context, key model.IsochroneKey) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id FROM %s WHERE name = ? AND group_index = ? AND value = ?`, s.tables.Isochrones),
		key.Name, key.GroupIndex, key.Value).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrapf(errs.ErrDataAccess, "sqlite: find isochrone: %v", err)
	}
	return id, true, nil
}

func (s *SQLiteStore) InsertIsochrone(ctx context.Context, rec model.IsochroneRecord) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal metadata")
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, name, state, zip_code, group_index, value, center, geometry, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.tables.Isochrones),
		uuid.New().String(), rec.Name, rec.State, rec.ZipCode, rec.GroupIndex, rec.Value,
		rec.CenterWKT, rec.GeometryWKT, string(metadata))
	if err != nil {
		return eris.Wrapf(errs.ErrDataAccess, "sqlite: insert isochrone: %v", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateIsochrone(ctx context.Context, id string, rec model.IsochroneRecord) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal metadata")
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET name = ?, state = ?, zip_code = ?, group_index = ?, value = ?,
		 center = ?, geometry = ?, metadata = ?, updated_at = datetime('now') WHERE id = ?`, s.tables.Isochrones),
		rec.Name, rec.State, rec.ZipCode, rec.GroupIndex, rec.Value,
		rec.CenterWKT, rec.GeometryWKT, string(metadata), id)
	if err != nil {
		return eris.Wrapf(errs.ErrDataAccess, "sqlite: update isochrone %s: %v", id, err)
	}
	return nil
}

func (s *SQLiteStore) HasIsochrones(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s)`, s.tables.Isochrones)).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(errs.ErrDataAccess, "sqlite: check isochrones: %v", err)
	}
	return exists, nil
}
