// Package store persists address records, centers, and generated
// isochrones, backed by Postgres or SQLite.
package store

import (
	"context"

	"github.com/sells-group/reach-cli/internal/model"
)

// Tables holds the configured table names. Record operations only accept
// tables named here.
type Tables struct {
	Centers    string
	Locations  string
	Isochrones string
}

// Geocodable returns the tables whose rows carry geocodable addresses.
func (t Tables) Geocodable() []string {
	return []string{t.Centers, t.Locations}
}

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Address records
	ListRecords(ctx context.Context, table string) ([]model.AddressRecord, error)
	UpdateRecordGeocode(ctx context.Context, table string, rec model.AddressRecord) error

	// Centers. ListCenters fails with a validation error when the table
	// is empty or any center lacks coordinates.
	ListCenters(ctx context.Context) ([]model.Center, error)
	GetCenter(ctx context.Context, name string) (*model.Center, error)

	// Isochrones
	FindIsochrone(ctx context.Context, key model.IsochroneKey) (id string, found bool, err error)
	InsertIsochrone(ctx context.Context, rec model.IsochroneRecord) error
	UpdateIsochrone(ctx context.Context, id string, rec model.IsochroneRecord) error
	HasIsochrones(ctx context.Context) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
