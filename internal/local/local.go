// Package local implements the file-based data layout: CSV tables for
// address records and GeoJSON files for generated isochrones.
package local

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/reach-cli/internal/errs"
	"github.com/sells-group/reach-cli/internal/geojson"
	"github.com/sells-group/reach-cli/internal/isochrone"
	"github.com/sells-group/reach-cli/internal/model"
	"github.com/sells-group/reach-cli/pkg/isoline"
)

// GeocodedName returns the output file name for a geocoded table.
func GeocodedName(table string) string {
	return "geocoded_" + table + ".csv"
}

// ResolveInput picks the input file for a table, preferring an existing
// geocoded version so prior results are not redone.
func ResolveInput(dir, table string) string {
	geocoded := filepath.Join(dir, GeocodedName(table))
	if _, err := os.Stat(geocoded); err == nil {
		return geocoded
	}
	return filepath.Join(dir, table+".csv")
}

// ReadRecords loads address records from a CSV file. Source headers are
// translated through the column mapping, so files with non-canonical
// header names decode into the same record shape.
func ReadRecords(path string, cols model.ColumnMapping) ([]model.AddressRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(errs.ErrDataAccess, "local: open %s: %v", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(errs.ErrDataAccess, "local: read header of %s: %v", path, err)
	}
	for i, h := range header {
		header[i] = cols.Canonical(h)
	}

	dec, err := csvutil.NewDecoder(reader, header...)
	if err != nil {
		return nil, eris.Wrap(err, "local: create decoder")
	}

	var records []model.AddressRecord
	for {
		var rec model.AddressRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(errs.ErrValidation, "local: decode %s: %v", path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteRecords writes address records as CSV with canonical headers.
func WriteRecords(path string, records []model.AddressRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(errs.ErrDataAccess, "local: create %s: %v", path, err)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return eris.Wrapf(err, "local: encode record %d", i)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(errs.ErrDataAccess, "local: write %s: %v", path, err)
	}
	return nil
}

// Centers converts geocoded records into isochrone centers. An empty
// dataset or a record with missing coordinates cannot anchor isochrone
// generation and fails the whole batch.
func Centers(records []model.AddressRecord) ([]model.Center, error) {
	if len(records) == 0 {
		return nil, eris.Wrap(errs.ErrValidation, "local: center data is empty")
	}
	centers := make([]model.Center, 0, len(records))
	for _, rec := range records {
		if !rec.HasCoordinates() {
			return nil, eris.Wrapf(errs.ErrValidation, "local: center %q has missing coordinates", rec.Name)
		}
		centers = append(centers, model.Center{
			Name:      rec.Name,
			State:     rec.State,
			ZipCode:   rec.ZipCode,
			Longitude: *rec.Longitude,
			Latitude:  *rec.Latitude,
		})
	}
	return centers, nil
}

// WriteFeatureCollection validates and writes a GeoJSON document.
func WriteFeatureCollection(path string, fc any) error {
	raw, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrapf(errs.ErrGeoJSON, "local: marshal geojson: %v", err)
	}
	if _, err := geojson.Validate(raw); err != nil {
		return eris.Wrapf(err, "local: validate %s", path)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrapf(errs.ErrDataAccess, "local: write %s: %v", path, err)
	}
	zap.L().Info("geojson written", zap.String("path", path))
	return nil
}

// WriteIsochrones writes one GeoJSON file per center plus a combined
// collection with every feature tagged by center name.
func WriteIsochrones(dir string, generated map[string]*isoline.FeatureCollection) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(errs.ErrDataAccess, "local: create dir %s: %v", dir, err)
	}

	for name, fc := range generated {
		path := filepath.Join(dir, isochrone.FileName(name))
		if err := WriteFeatureCollection(path, fc); err != nil {
			return err
		}
	}

	combined, err := CombineCollections(generated)
	if err != nil {
		return err
	}
	return WriteFeatureCollection(filepath.Join(dir, "isochrones.geojson"), combined)
}

// CombineCollections merges per-center collections into one, adding a
// name property to each feature for identification.
func CombineCollections(generated map[string]*isoline.FeatureCollection) (map[string]any, error) {
	names := make([]string, 0, len(generated))
	for name := range generated {
		names = append(names, name)
	}
	sort.Strings(names)

	features := make([]any, 0)
	for _, name := range names {
		for i, feature := range generated[name].Features {
			obj, err := featureToMap(feature)
			if err != nil {
				return nil, eris.Wrapf(err, "local: feature %d of %q", i, name)
			}
			props, ok := obj["properties"].(map[string]any)
			if !ok {
				props = map[string]any{}
			}
			props["name"] = name
			obj["properties"] = props
			features = append(features, obj)
		}
	}

	return map[string]any{
		"type":     "FeatureCollection",
		"features": features,
	}, nil
}

func featureToMap(feature isoline.Feature) (map[string]any, error) {
	raw, err := json.Marshal(feature)
	if err != nil {
		return nil, eris.Wrap(err, "local: marshal feature")
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, eris.Wrap(err, "local: unmarshal feature")
	}
	return obj, nil
}

// HasOutput reports whether the directory already holds isochrone
// output, ignoring hidden files.
func HasOutput(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(errs.ErrDataAccess, "local: read dir %s: %v", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		return true, nil
	}
	return false, nil
}
