// Package isochrone orchestrates isochrone generation around center
// coordinates and reconciles the results into storage.
package isochrone

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/reach-cli/internal/config"
	"github.com/sells-group/reach-cli/internal/model"
	"github.com/sells-group/reach-cli/pkg/isoline"
)

// Generator fans isochrone requests out over a bounded worker pool. The
// external service throttles aggressively, so concurrency stays low and
// every call is followed by a cooldown pause.
type Generator struct {
	client    isoline.Client
	profile   string
	ranges    []int
	smoothing float64
	workers   int
	cooldown  time.Duration

	// sleep is swappable for tests.
	sleep func(time.Duration)
}

// NewGenerator creates a Generator from the isochrone configuration.
func NewGenerator(client isoline.Client, cfg config.IsochroneConfig) *Generator {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Generator{
		client:    client,
		profile:   cfg.Profile,
		ranges:    cfg.Ranges,
		smoothing: cfg.Smoothing,
		workers:   workers,
		cooldown:  cfg.Cooldown(),
		sleep:     time.Sleep,
	}
}

// GenerateAll generates isochrones for every center and returns results
// keyed by center name. A failed center is logged and omitted; its
// siblings still run. Only context cancellation aborts the batch.
func (g *Generator) GenerateAll(ctx context.Context, centers []model.Center) (map[string]*isoline.FeatureCollection, error) {
	results := make([]*isoline.FeatureCollection, len(centers))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	var once sync.Once
	var ctxErr error

	for i, center := range centers {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				once.Do(func() { ctxErr = err })
				return nil
			}
			// Cooldown runs even when the call fails.
			defer g.sleep(g.cooldown)

			log := zap.L().With(zap.String("center", center.Name))
			log.Info("generating isochrones",
				zap.Float64("longitude", center.Longitude),
				zap.Float64("latitude", center.Latitude))

			fc, err := g.client.Isochrones(ctx, isoline.Request{
				Longitude: center.Longitude,
				Latitude:  center.Latitude,
				Profile:   g.profile,
				Ranges:    g.ranges,
				Smoothing: g.smoothing,
			})
			if err != nil {
				log.Error("isochrone generation failed", zap.Error(err))
				return nil
			}
			results[i] = fc
			log.Info("isochrones generated", zap.Int("features", len(fc.Features)))
			return nil
		})
	}
	_ = eg.Wait()

	if ctxErr != nil {
		return nil, ctxErr
	}

	generated := make(map[string]*isoline.FeatureCollection, len(centers))
	for i, fc := range results {
		if fc != nil {
			generated[centers[i].Name] = fc
		}
	}
	return generated, nil
}
