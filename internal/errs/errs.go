// Package errs defines the closed set of error kinds that cross the core
// boundary. External failures (HTTP, pgx, filesystem) are wrapped into one
// of these sentinels before reaching calling code; callers match with
// eris.Is.
package errs

import "github.com/rotisserie/eris"

var (
	// ErrConfig indicates missing credentials or required settings.
	ErrConfig = eris.New("configuration error")

	// ErrConnectivity indicates an external service was unreachable or errored.
	ErrConnectivity = eris.New("connectivity error")

	// ErrDataAccess indicates a storage read or write failure.
	ErrDataAccess = eris.New("data access error")

	// ErrValidation indicates a malformed record or value.
	ErrValidation = eris.New("data validation error")

	// ErrProcessing indicates a generic transformation failure.
	ErrProcessing = eris.New("data processing error")

	// ErrGeoJSON indicates a structural defect in spatial data.
	ErrGeoJSON = eris.New("geojson error")
)
