// Package geojson validates and manipulates untyped GeoJSON documents.
// Documents are plain map[string]any trees, as produced by encoding/json,
// so the package composes with data from files, HTTP responses, and
// hand-built literals alike.
package geojson

import (
	"encoding/json"
	"os"
	"reflect"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/reach-cli/internal/errs"
)

// validTypes is the closed set of GeoJSON type tags.
var validTypes = map[string]bool{
	"Point":              true,
	"MultiPoint":         true,
	"LineString":         true,
	"MultiLineString":    true,
	"Polygon":            true,
	"MultiPolygon":       true,
	"GeometryCollection": true,
	"Feature":            true,
	"FeatureCollection":  true,
}

// coordDepth maps geometry types to their coordinate nesting depth.
// A Point is a bare position (depth 0), a MultiPolygon nests three
// levels of arrays above positions.
var coordDepth = map[string]int{
	"Point":           0,
	"MultiPoint":      1,
	"LineString":      1,
	"MultiLineString": 2,
	"Polygon":         2,
	"MultiPolygon":    3,
}

// Validate checks that data is structurally valid GeoJSON and returns it
// as an object tree. Accepts a map, a JSON string, or raw JSON bytes.
func Validate(data any) (map[string]any, error) {
	obj, err := toObject(data)
	if err != nil {
		return nil, err
	}

	typ, ok := obj["type"].(string)
	if !ok {
		return nil, eris.Wrap(errs.ErrValidation, "geojson: missing type property")
	}
	if !validTypes[typ] {
		return nil, eris.Wrapf(errs.ErrValidation, "geojson: invalid type %q", typ)
	}

	switch typ {
	case "Feature":
		err = validateFeature(obj)
	case "FeatureCollection":
		err = validateFeatureCollection(obj)
	case "GeometryCollection":
		err = validateGeometryCollection(obj)
	default:
		err = validateGeometry(obj)
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func toObject(data any) (map[string]any, error) {
	switch v := data.(type) {
	case map[string]any:
		return v, nil
	case string:
		return parseObject([]byte(v))
	case []byte:
		return parseObject(v)
	}
	return nil, eris.Wrap(errs.ErrValidation, "geojson: input must be a JSON object")
}

func parseObject(raw []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, eris.Wrap(errs.ErrValidation, "geojson: invalid JSON")
	}
	return obj, nil
}

func validateGeometry(geom map[string]any) error {
	typ, _ := geom["type"].(string)
	coords, ok := geom["coordinates"]
	if !ok {
		return eris.Wrapf(errs.ErrValidation, "geojson: %s missing coordinates", typ)
	}
	depth, ok := coordDepth[typ]
	if !ok {
		return eris.Wrapf(errs.ErrValidation, "geojson: invalid geometry type %q", typ)
	}
	return validateCoords(coords, depth)
}

// validateCoords walks nested coordinate arrays. Depth 0 is a single
// position; each level above it is an array of the level below.
func validateCoords(coords any, depth int) error {
	elems, ok := toSlice(coords)
	if !ok {
		return eris.Wrap(errs.ErrValidation, "geojson: coordinates must be an array")
	}
	if depth == 0 {
		if len(elems) < 2 {
			return eris.Wrap(errs.ErrValidation, "geojson: position needs at least 2 numbers")
		}
		for _, e := range elems {
			if !isNumber(e) {
				return eris.Wrap(errs.ErrValidation, "geojson: position values must be numbers")
			}
		}
		return nil
	}
	for _, e := range elems {
		if err := validateCoords(e, depth-1); err != nil {
			return err
		}
	}
	return nil
}

func validateFeature(feature map[string]any) error {
	geom, ok := feature["geometry"]
	if !ok {
		return eris.Wrap(errs.ErrValidation, "geojson: feature missing geometry")
	}
	// Geometry can be null
	if geom != nil {
		geomObj, ok := geom.(map[string]any)
		if !ok {
			return eris.Wrap(errs.ErrValidation, "geojson: feature geometry must be an object")
		}
		typ, _ := geomObj["type"].(string)
		if typ == "GeometryCollection" {
			if err := validateGeometryCollection(geomObj); err != nil {
				return err
			}
		} else if err := validateGeometry(geomObj); err != nil {
			return err
		}
	}
	if props, ok := feature["properties"]; ok && props != nil {
		if _, ok := props.(map[string]any); !ok {
			return eris.Wrap(errs.ErrValidation, "geojson: feature properties must be an object")
		}
	}
	return nil
}

func validateFeatureCollection(fc map[string]any) error {
	features, ok := fc["features"]
	if !ok {
		return eris.Wrap(errs.ErrValidation, "geojson: collection missing features")
	}
	elems, ok := toSlice(features)
	if !ok {
		return eris.Wrap(errs.ErrValidation, "geojson: features must be an array")
	}
	for i, f := range elems {
		obj, ok := f.(map[string]any)
		if !ok {
			return eris.Wrapf(errs.ErrValidation, "geojson: feature %d is not an object", i)
		}
		if err := validateFeature(obj); err != nil {
			return eris.Wrapf(err, "geojson: feature %d", i)
		}
	}
	return nil
}

func validateGeometryCollection(gc map[string]any) error {
	geoms, ok := gc["geometries"]
	if !ok {
		return eris.Wrap(errs.ErrValidation, "geojson: collection missing geometries")
	}
	elems, ok := toSlice(geoms)
	if !ok {
		return eris.Wrap(errs.ErrValidation, "geojson: geometries must be an array")
	}
	for i, g := range elems {
		obj, ok := g.(map[string]any)
		if !ok {
			return eris.Wrapf(errs.ErrValidation, "geojson: geometry %d is not an object", i)
		}
		if err := validateGeometry(obj); err != nil {
			return eris.Wrapf(err, "geojson: geometry %d", i)
		}
	}
	return nil
}

// NewPoint builds a Point feature at lon, lat.
func NewPoint(lon, lat float64, properties map[string]any) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"type": "Feature",
		"geometry": map[string]any{
			"type":        "Point",
			"coordinates": []any{lon, lat},
		},
		"properties": properties,
	}
}

// NewPolygon builds a Polygon feature from linear rings.
func NewPolygon(rings [][][]float64, properties map[string]any) (map[string]any, error) {
	if len(rings) == 0 {
		return nil, eris.Wrap(errs.ErrValidation, "geojson: polygon needs at least one ring")
	}
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"type": "Feature",
		"geometry": map[string]any{
			"type":        "Polygon",
			"coordinates": rings,
		},
		"properties": properties,
	}, nil
}

// ExtractFeatures returns all features of a GeoJSON object. Collections
// yield their feature list, a Feature yields itself, and a bare geometry
// is wrapped in a Feature with empty properties.
func ExtractFeatures(data any) ([]map[string]any, error) {
	obj, err := toObject(data)
	if err != nil {
		return nil, err
	}
	typ, _ := obj["type"].(string)
	switch typ {
	case "FeatureCollection":
		elems, ok := toSlice(obj["features"])
		if !ok {
			return nil, eris.Wrap(errs.ErrProcessing, "geojson: features must be an array")
		}
		features := make([]map[string]any, 0, len(elems))
		for i, f := range elems {
			fobj, ok := f.(map[string]any)
			if !ok {
				return nil, eris.Wrapf(errs.ErrProcessing, "geojson: feature %d is not an object", i)
			}
			features = append(features, fobj)
		}
		return features, nil
	case "Feature":
		return []map[string]any{obj}, nil
	default:
		return []map[string]any{{
			"type":       "Feature",
			"geometry":   obj,
			"properties": map[string]any{},
		}}, nil
	}
}

// FindFeaturesByProperty returns the features whose properties carry the
// given key with an equal value.
func FindFeaturesByProperty(data any, key string, value any) ([]map[string]any, error) {
	features, err := ExtractFeatures(data)
	if err != nil {
		return nil, err
	}
	var matched []map[string]any
	for _, f := range features {
		props, ok := f["properties"].(map[string]any)
		if !ok {
			continue
		}
		if reflect.DeepEqual(props[key], value) {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

// Positions returns every coordinate position of a GeoJSON object as
// (lon, lat) pairs. Features with null geometry are skipped.
func Positions(data any) ([][2]float64, error) {
	features, err := ExtractFeatures(data)
	if err != nil {
		return nil, err
	}

	var positions [][2]float64
	collect := func(lon, lat float64) {
		positions = append(positions, [2]float64{lon, lat})
	}
	for _, f := range features {
		geom, ok := f["geometry"].(map[string]any)
		if !ok {
			continue
		}
		typ, _ := geom["type"].(string)
		depth, ok := coordDepth[typ]
		if !ok {
			continue
		}
		if err := foldCoords(geom["coordinates"], depth, collect); err != nil {
			return nil, err
		}
	}
	return positions, nil
}

// BBox folds over every coordinate leaf and returns
// [minLon, minLat, maxLon, maxLat]. Features with null geometry are
// skipped; an object with no coordinates at all is an error.
func BBox(data any) ([4]float64, error) {
	var bbox [4]float64
	positions, err := Positions(data)
	if err != nil {
		return bbox, err
	}
	if len(positions) == 0 {
		return bbox, eris.Wrap(errs.ErrProcessing, "geojson: no coordinates for bbox")
	}

	bbox = [4]float64{positions[0][0], positions[0][1], positions[0][0], positions[0][1]}
	for _, p := range positions[1:] {
		bbox[0] = min(bbox[0], p[0])
		bbox[1] = min(bbox[1], p[1])
		bbox[2] = max(bbox[2], p[0])
		bbox[3] = max(bbox[3], p[1])
	}
	return bbox, nil
}

func foldCoords(coords any, depth int, fn func(lon, lat float64)) error {
	elems, ok := toSlice(coords)
	if !ok {
		return eris.Wrap(errs.ErrProcessing, "geojson: coordinates must be an array")
	}
	if depth == 0 {
		if len(elems) < 2 {
			return eris.Wrap(errs.ErrProcessing, "geojson: position needs at least 2 numbers")
		}
		lon, ok1 := toFloat(elems[0])
		lat, ok2 := toFloat(elems[1])
		if !ok1 || !ok2 {
			return eris.Wrap(errs.ErrProcessing, "geojson: position values must be numbers")
		}
		fn(lon, lat)
		return nil
	}
	for _, e := range elems {
		if err := foldCoords(e, depth-1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Merge validates each input and concatenates their features into a
// single FeatureCollection. Bare geometries are wrapped as features.
func Merge(objects ...any) (map[string]any, error) {
	features := make([]any, 0)
	for i, obj := range objects {
		validated, err := Validate(obj)
		if err != nil {
			return nil, eris.Wrapf(err, "geojson: object %d", i)
		}
		extracted, err := ExtractFeatures(validated)
		if err != nil {
			return nil, eris.Wrapf(err, "geojson: object %d", i)
		}
		for _, f := range extracted {
			features = append(features, f)
		}
	}
	return map[string]any{
		"type":     "FeatureCollection",
		"features": features,
	}, nil
}

// MergeFiles reads and merges GeoJSON files into one FeatureCollection.
// Unreadable or invalid files are logged and skipped; merging an empty
// batch yields an empty collection.
func MergeFiles(paths []string) (map[string]any, error) {
	valid := make([]any, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			zap.L().Warn("skipping unreadable geojson file",
				zap.String("path", path), zap.Error(err))
			continue
		}
		obj, err := Validate(raw)
		if err != nil {
			zap.L().Warn("skipping invalid geojson file",
				zap.String("path", path), zap.Error(err))
			continue
		}
		valid = append(valid, obj)
	}
	return Merge(valid...)
}

// toSlice normalizes any slice value to []any. Documents decoded from
// JSON hold []any; hand-built ones may hold typed slices.
func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func isNumber(v any) bool {
	_, ok := toFloat(v)
	return ok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
