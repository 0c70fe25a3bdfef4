// Package model holds the domain records shared across the pipeline.
package model

// AddressRecord is one row of a geocodable table. Latitude and Longitude
// are both set or both nil; partial coordinates are invalid.
type AddressRecord struct {
	ID        string   `csv:"id" json:"id"`
	Name      string   `csv:"name,omitempty" json:"name,omitempty"`
	Address   string   `csv:"address" json:"address"`
	City      string   `csv:"city" json:"city"`
	State     string   `csv:"state" json:"state"`
	ZipCode   string   `csv:"zip_code" json:"zip_code"`
	Latitude  *float64 `csv:"latitude" json:"latitude"`
	Longitude *float64 `csv:"longitude" json:"longitude"`
	Error     string   `csv:"error" json:"error,omitempty"`

	// NeedsUpdate marks rows mutated by reconciliation. Transient; never
	// persisted.
	NeedsUpdate bool `csv:"-" json:"-"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (r *AddressRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// SetCoordinates writes both coordinates. Passing nil for either clears both,
// preserving the both-or-neither invariant.
func (r *AddressRecord) SetCoordinates(lat, lon *float64) {
	if lat == nil || lon == nil {
		r.Latitude = nil
		r.Longitude = nil
		return
	}
	r.Latitude = lat
	r.Longitude = lon
}

// ColumnMapping maps record roles to the column headers of a tabular source.
type ColumnMapping struct {
	ID        string
	Name      string
	Address   string
	City      string
	State     string
	ZipCode   string
	Latitude  string
	Longitude string
	Error     string
}

// DefaultColumns returns the canonical header names used by the bundled
// table layouts.
func DefaultColumns() ColumnMapping {
	return ColumnMapping{
		ID:        "id",
		Name:      "name",
		Address:   "address",
		City:      "city",
		State:     "state",
		ZipCode:   "zip_code",
		Latitude:  "latitude",
		Longitude: "longitude",
		Error:     "error",
	}
}

// Canonical translates a source header to its canonical role name, or
// returns it unchanged when the mapping does not cover it.
func (m ColumnMapping) Canonical(header string) string {
	switch header {
	case m.ID:
		return "id"
	case m.Name:
		return "name"
	case m.Address:
		return "address"
	case m.City:
		return "city"
	case m.State:
		return "state"
	case m.ZipCode:
		return "zip_code"
	case m.Latitude:
		return "latitude"
	case m.Longitude:
		return "longitude"
	case m.Error:
		return "error"
	}
	return header
}
