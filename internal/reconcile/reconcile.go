// Package reconcile brings a dataset of address records up to date with
// resolved coordinates.
package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/reach-cli/internal/model"
	"github.com/sells-group/reach-cli/pkg/geocode"
)

// Resolver is the resolution dependency; satisfied by *geocode.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, q geocode.Query) (geocode.Resolution, error)
}

// Summary tallies one reconciliation pass.
type Summary struct {
	Processed int
	Succeeded int
	Failed    int
}

// Reconcile resolves every record that is missing a coordinate or carries
// a prior error, writing results in place and marking touched records
// NeedsUpdate. Records already holding clean coordinates are left alone,
// so a second pass over the same data is a no-op.
func Reconcile(ctx context.Context, records []model.AddressRecord, resolver Resolver) (Summary, error) {
	var sum Summary

	for i := range records {
		rec := &records[i]
		if rec.HasCoordinates() && rec.Error == "" {
			continue
		}

		res, err := resolver.Resolve(ctx, geocode.Query{
			Address:   rec.Address,
			City:      rec.City,
			State:     rec.State,
			ZipCode:   rec.ZipCode,
			PlaceName: rec.Name,
		})
		if err != nil {
			return sum, err
		}

		rec.SetCoordinates(res.Latitude, res.Longitude)
		rec.Error = res.Note
		rec.NeedsUpdate = true
		sum.Processed++

		if rec.HasCoordinates() {
			sum.Succeeded++
			zap.L().Info("record resolved",
				zap.String("id", rec.ID),
				zap.String("note", res.Note))
		} else {
			sum.Failed++
			zap.L().Warn("record unresolved",
				zap.String("id", rec.ID),
				zap.String("note", res.Note))
		}
	}

	if sum.Processed == 0 {
		zap.L().Info("all records already resolved")
	} else {
		zap.L().Info("reconciliation complete",
			zap.Int("processed", sum.Processed),
			zap.Int("succeeded", sum.Succeeded),
			zap.Int("failed", sum.Failed))
	}
	return sum, nil
}
