package model

// Center is a resolved center coordinate around which isochrones are
// generated. Read-only once resolved.
type Center struct {
	Name      string  `csv:"name" json:"name"`
	State     string  `csv:"state" json:"state"`
	ZipCode   string  `csv:"zip_code" json:"zip_code"`
	Longitude float64 `csv:"longitude" json:"longitude"`
	Latitude  float64 `csv:"latitude" json:"latitude"`
}

// IsochroneKey identifies one persisted isochrone: a center name, the
// service's group index, and the travel-time threshold in seconds.
type IsochroneKey struct {
	Name       string
	GroupIndex int
	Value      float64
}

// IsochroneRecord is the persisted form of a generated isochrone feature,
// with denormalized center fields and WKT encodings of the center point and
// polygon. Rows are upserted by key, never deleted.
type IsochroneRecord struct {
	IsochroneKey

	State       string
	ZipCode     string
	CenterWKT   string
	GeometryWKT string
	Metadata    map[string]any
}
