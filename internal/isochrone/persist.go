package isochrone

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
	"go.uber.org/zap"

	"github.com/sells-group/reach-cli/internal/errs"
	"github.com/sells-group/reach-cli/internal/model"
	"github.com/sells-group/reach-cli/pkg/isoline"
)

// Store is the persistence surface the reconciler needs.
type Store interface {
	GetCenter(ctx context.Context, name string) (*model.Center, error)
	FindIsochrone(ctx context.Context, key model.IsochroneKey) (id string, found bool, err error)
	InsertIsochrone(ctx context.Context, rec model.IsochroneRecord) error
	UpdateIsochrone(ctx context.Context, id string, rec model.IsochroneRecord) error
}

// Reconciler upserts generated isochrone features into a Store. Rows are
// keyed by (name, group_index, value) and never deleted.
type Reconciler struct {
	store Store
}

// NewReconciler creates a Reconciler over the given store.
func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile persists every feature of a generated collection for one
// center. State and zip come from the centers directory when present,
// falling back to the store. Features are processed independently;
// per-feature failures are collected and returned joined after all
// siblings have run. With dryRun set, writes are logged but not applied.
func (r *Reconciler) Reconcile(ctx context.Context, centerName string, fc *isoline.FeatureCollection, dryRun bool, centers map[string]model.Center) error {
	log := zap.L().With(zap.String("center", centerName), zap.Bool("dry_run", dryRun))

	state, zipCode, err := r.centerInfo(ctx, centerName, centers)
	if err != nil {
		return err
	}

	var featureErrs []error
	for i, feature := range fc.Features {
		if err := r.reconcileFeature(ctx, centerName, state, zipCode, fc.Metadata, feature, dryRun, log); err != nil {
			log.Error("feature reconcile failed", zap.Int("feature_idx", i), zap.Error(err))
			featureErrs = append(featureErrs, eris.Wrapf(err, "isochrone: feature %d", i))
		}
	}
	return errors.Join(featureErrs...)
}

func (r *Reconciler) centerInfo(ctx context.Context, centerName string, centers map[string]model.Center) (state, zipCode string, err error) {
	if c, ok := centers[centerName]; ok {
		state, zipCode = c.State, c.ZipCode
	}
	if state == "" || zipCode == "" {
		stored, err := r.store.GetCenter(ctx, centerName)
		if err != nil {
			return "", "", eris.Wrapf(err, "isochrone: load center %q", centerName)
		}
		if stored != nil {
			if state == "" {
				state = stored.State
			}
			if zipCode == "" {
				zipCode = stored.ZipCode
			}
		}
	}
	if state == "" {
		return "", "", eris.Wrapf(errs.ErrValidation, "isochrone: state missing for center %q", centerName)
	}
	if zipCode == "" {
		return "", "", eris.Wrapf(errs.ErrValidation, "isochrone: zip code missing for center %q", centerName)
	}
	return state, zipCode, nil
}

func (r *Reconciler) reconcileFeature(ctx context.Context, centerName, state, zipCode string, collectionMeta map[string]any, feature isoline.Feature, dryRun bool, log *zap.Logger) error {
	geometryWKT, err := polygonWKT(feature.Geometry)
	if err != nil {
		return err
	}
	centerWKT, err := pointWKT(feature.Properties.Center)
	if err != nil {
		return err
	}

	metadata := maps.Clone(collectionMeta)
	if metadata == nil {
		metadata = map[string]any{}
	}
	maps.Copy(metadata, feature.Metadata)

	rec := model.IsochroneRecord{
		IsochroneKey: model.IsochroneKey{
			Name:       centerName,
			GroupIndex: feature.Properties.GroupIndex,
			Value:      feature.Properties.Value,
		},
		State:       state,
		ZipCode:     zipCode,
		CenterWKT:   centerWKT,
		GeometryWKT: geometryWKT,
		Metadata:    metadata,
	}

	id, found, err := r.store.FindIsochrone(ctx, rec.IsochroneKey)
	if err != nil {
		return eris.Wrap(err, "isochrone: find existing")
	}

	if dryRun {
		log.Info("dry run: would upsert isochrone",
			zap.Int("group_index", rec.GroupIndex),
			zap.Float64("value", rec.Value),
			zap.Bool("exists", found))
		return nil
	}

	if found {
		if err := r.store.UpdateIsochrone(ctx, id, rec); err != nil {
			return eris.Wrap(err, "isochrone: update")
		}
		log.Debug("isochrone updated", zap.String("id", id), zap.Float64("value", rec.Value))
		return nil
	}
	if err := r.store.InsertIsochrone(ctx, rec); err != nil {
		return eris.Wrap(err, "isochrone: insert")
	}
	log.Debug("isochrone inserted", zap.Float64("value", rec.Value))
	return nil
}

// polygonWKT encodes the outer ring of a Polygon geometry as WKT.
func polygonWKT(g isoline.Geometry) (string, error) {
	if g.Type != "Polygon" {
		return "", eris.Wrapf(errs.ErrGeoJSON, "isochrone: expected Polygon geometry, got %q", g.Type)
	}
	if len(g.Coordinates) == 0 || len(g.Coordinates[0]) < 4 {
		return "", eris.Wrap(errs.ErrGeoJSON, "isochrone: polygon has insufficient coordinates")
	}

	outer := g.Coordinates[0]
	flat := make([]float64, 0, len(outer)*2)
	for _, pos := range outer {
		if len(pos) < 2 {
			return "", eris.Wrap(errs.ErrGeoJSON, "isochrone: position needs 2 coordinates")
		}
		flat = append(flat, pos[0], pos[1])
	}

	poly := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
	out, err := wkt.Marshal(poly)
	if err != nil {
		return "", eris.Wrap(err, "isochrone: encode polygon wkt")
	}
	return out, nil
}

// pointWKT encodes a [lon, lat] position as WKT, preserving the source's
// plain decimal formatting.
func pointWKT(center []float64) (string, error) {
	if len(center) < 2 {
		return "", eris.Wrap(errs.ErrGeoJSON, "isochrone: center needs 2 coordinates")
	}
	var b strings.Builder
	b.WriteString("POINT (")
	b.WriteString(strconv.FormatFloat(center[0], 'f', -1, 64))
	b.WriteString(" ")
	b.WriteString(strconv.FormatFloat(center[1], 'f', -1, 64))
	b.WriteString(")")
	return b.String(), nil
}

// SanitizeName strips every non-alphanumeric rune; used to derive file
// names from center names.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FileName derives the per-center output file name.
func FileName(centerName string) string {
	return fmt.Sprintf("%s_isochrones.geojson", SanitizeName(centerName))
}
