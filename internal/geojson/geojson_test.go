package geojson

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reach-cli/internal/errs"
)

func point(lon, lat float64) map[string]any {
	return map[string]any{
		"type":        "Point",
		"coordinates": []any{lon, lat},
	}
}

func TestValidatePoint(t *testing.T) {
	obj, err := Validate(point(-122.4194, 37.7749))
	require.NoError(t, err)
	assert.Equal(t, "Point", obj["type"])
}

func TestValidateStringInput(t *testing.T) {
	obj, err := Validate(`{"type":"Point","coordinates":[-122.4194,37.7749]}`)
	require.NoError(t, err)
	assert.Equal(t, "Point", obj["type"])
}

func TestValidateBytesInput(t *testing.T) {
	obj, err := Validate([]byte(`{"type":"LineString","coordinates":[[0,0],[1,1]]}`))
	require.NoError(t, err)
	assert.Equal(t, "LineString", obj["type"])
}

func TestValidateInvalidJSON(t *testing.T) {
	_, err := Validate(`{not json`)
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
}

func TestValidateNonObject(t *testing.T) {
	_, err := Validate(42)
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
}

func TestValidateMissingType(t *testing.T) {
	_, err := Validate(map[string]any{"coordinates": []any{0.0, 0.0}})
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
}

func TestValidateUnknownType(t *testing.T) {
	_, err := Validate(map[string]any{"type": "Circle", "coordinates": []any{0.0, 0.0}})
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
}

func TestValidateCoordinateDepths(t *testing.T) {
	cases := []struct {
		name  string
		input string
		ok    bool
	}{
		{"point", `{"type":"Point","coordinates":[0,0]}`, true},
		{"point short", `{"type":"Point","coordinates":[0]}`, false},
		{"point nested", `{"type":"Point","coordinates":[[0,0]]}`, false},
		{"multipoint", `{"type":"MultiPoint","coordinates":[[0,0],[1,1]]}`, true},
		{"multipoint flat", `{"type":"MultiPoint","coordinates":[0,0]}`, false},
		{"linestring", `{"type":"LineString","coordinates":[[0,0],[1,1]]}`, true},
		{"polygon", `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`, true},
		{"polygon shallow", `{"type":"Polygon","coordinates":[[0,0],[1,0]]}`, false},
		{"multilinestring", `{"type":"MultiLineString","coordinates":[[[0,0],[1,1]]]}`, true},
		{"multipolygon", `{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]]]}`, true},
		{"multipolygon shallow", `{"type":"MultiPolygon","coordinates":[[[0,0],[1,0]]]}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(tc.input)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, eris.Is(err, errs.ErrValidation))
			}
		})
	}
}

func TestValidateGeometryMissingCoordinates(t *testing.T) {
	_, err := Validate(map[string]any{"type": "Point"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
}

func TestValidateFeature(t *testing.T) {
	obj, err := Validate(NewPoint(-94.51, 37.09, map[string]any{"name": "Joplin"}))
	require.NoError(t, err)
	assert.Equal(t, "Feature", obj["type"])
}

func TestValidateFeatureNullGeometry(t *testing.T) {
	_, err := Validate(map[string]any{
		"type":       "Feature",
		"geometry":   nil,
		"properties": map[string]any{},
	})
	assert.NoError(t, err)
}

func TestValidateFeatureMissingGeometryKey(t *testing.T) {
	_, err := Validate(map[string]any{"type": "Feature", "properties": map[string]any{}})
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
}

func TestValidateFeatureBadProperties(t *testing.T) {
	_, err := Validate(map[string]any{
		"type":       "Feature",
		"geometry":   point(0, 0),
		"properties": "nope",
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
}

func TestValidateFeatureCollection(t *testing.T) {
	fc := map[string]any{
		"type": "FeatureCollection",
		"features": []any{
			NewPoint(0, 0, nil),
			NewPoint(1, 1, nil),
		},
	}
	obj, err := Validate(fc)
	require.NoError(t, err)
	assert.Equal(t, "FeatureCollection", obj["type"])
}

func TestValidateFeatureCollectionBadFeature(t *testing.T) {
	fc := map[string]any{
		"type": "FeatureCollection",
		"features": []any{
			map[string]any{"type": "Feature", "properties": map[string]any{}},
		},
	}
	_, err := Validate(fc)
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
}

func TestValidateGeometryCollection(t *testing.T) {
	gc := map[string]any{
		"type": "GeometryCollection",
		"geometries": []any{
			point(0, 0),
			map[string]any{"type": "LineString", "coordinates": []any{[]any{0.0, 0.0}, []any{1.0, 1.0}}},
		},
	}
	_, err := Validate(gc)
	assert.NoError(t, err)
}

func TestNewPolygon(t *testing.T) {
	rings := [][][]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}
	feature, err := NewPolygon(rings, map[string]any{"name": "tri"})
	require.NoError(t, err)

	_, err = Validate(feature)
	assert.NoError(t, err)
}

func TestNewPolygonEmpty(t *testing.T) {
	_, err := NewPolygon(nil, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
}

func TestExtractFeatures(t *testing.T) {
	fc := map[string]any{
		"type":     "FeatureCollection",
		"features": []any{NewPoint(0, 0, nil), NewPoint(1, 1, nil)},
	}
	features, err := ExtractFeatures(fc)
	require.NoError(t, err)
	assert.Len(t, features, 2)

	features, err = ExtractFeatures(NewPoint(5, 5, nil))
	require.NoError(t, err)
	assert.Len(t, features, 1)

	// Bare geometry gets wrapped
	features, err = ExtractFeatures(point(2, 3))
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "Feature", features[0]["type"])
	assert.Equal(t, map[string]any{}, features[0]["properties"])
}

func TestFindFeaturesByProperty(t *testing.T) {
	fc := map[string]any{
		"type": "FeatureCollection",
		"features": []any{
			NewPoint(0, 0, map[string]any{"name": "a"}),
			NewPoint(1, 1, map[string]any{"name": "b"}),
			NewPoint(2, 2, map[string]any{"name": "a"}),
		},
	}
	matched, err := FindFeaturesByProperty(fc, "name", "a")
	require.NoError(t, err)
	assert.Len(t, matched, 2)

	matched, err = FindFeaturesByProperty(fc, "name", "missing")
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestBBoxTwoPoints(t *testing.T) {
	fc := map[string]any{
		"type":     "FeatureCollection",
		"features": []any{NewPoint(0, 0, nil), NewPoint(1, 1, nil)},
	}
	bbox, err := BBox(fc)
	require.NoError(t, err)
	assert.Equal(t, [4]float64{0, 0, 1, 1}, bbox)
}

func TestBBoxPolygon(t *testing.T) {
	feature, err := NewPolygon([][][]float64{{{-3, -2}, {4, -2}, {4, 5}, {-3, -2}}}, nil)
	require.NoError(t, err)

	bbox, err := BBox(feature)
	require.NoError(t, err)
	assert.Equal(t, [4]float64{-3, -2, 4, 5}, bbox)
}

func TestBBoxSkipsNullGeometry(t *testing.T) {
	fc := map[string]any{
		"type": "FeatureCollection",
		"features": []any{
			map[string]any{"type": "Feature", "geometry": nil, "properties": map[string]any{}},
			NewPoint(7, 8, nil),
		},
	}
	bbox, err := BBox(fc)
	require.NoError(t, err)
	assert.Equal(t, [4]float64{7, 8, 7, 8}, bbox)
}

func TestPositions(t *testing.T) {
	fc := map[string]any{
		"type": "FeatureCollection",
		"features": []any{
			map[string]any{"type": "Feature", "geometry": nil, "properties": map[string]any{}},
			NewPoint(0, 0, nil),
			NewPoint(1, 2, nil),
		},
	}
	positions, err := Positions(fc)
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{0, 0}, {1, 2}}, positions)

	positions, err = Positions(map[string]any{"type": "FeatureCollection", "features": []any{}})
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestBBoxNoCoordinates(t *testing.T) {
	fc := map[string]any{"type": "FeatureCollection", "features": []any{}}
	_, err := BBox(fc)
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrProcessing))
}

func TestMerge(t *testing.T) {
	fc := map[string]any{
		"type":     "FeatureCollection",
		"features": []any{NewPoint(0, 0, nil)},
	}
	merged, err := Merge(fc, NewPoint(1, 1, nil), point(2, 2))
	require.NoError(t, err)

	features, ok := merged["features"].([]any)
	require.True(t, ok)
	assert.Len(t, features, 3)
	assert.Equal(t, "FeatureCollection", merged["type"])
}

func TestMergeInvalidInput(t *testing.T) {
	_, err := Merge(map[string]any{"type": "Bogus"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
}

func TestMergeEmpty(t *testing.T) {
	merged, err := Merge()
	require.NoError(t, err)
	features, ok := merged["features"].([]any)
	require.True(t, ok)
	assert.Empty(t, features)
}

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.geojson")
	require.NoError(t, os.WriteFile(good,
		[]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{}}]}`), 0644))

	bad := filepath.Join(dir, "bad.geojson")
	require.NoError(t, os.WriteFile(bad, []byte(`{"type":"Nope"}`), 0644))

	missing := filepath.Join(dir, "missing.geojson")

	merged, err := MergeFiles([]string{good, bad, missing})
	require.NoError(t, err)

	features, ok := merged["features"].([]any)
	require.True(t, ok)
	assert.Len(t, features, 1)
}
