package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/reach-cli/internal/errs"
	"github.com/sells-group/reach-cli/internal/isochrone"
	"github.com/sells-group/reach-cli/internal/local"
	"github.com/sells-group/reach-cli/internal/model"
	"github.com/sells-group/reach-cli/pkg/isoline"
)

var isochronesCmd = &cobra.Command{
	Use:   "isochrones",
	Short: "Generate travel-time isochrones for city centers",
	Long:  "Generates isochrone polygons for every center with coordinates and reconciles them into the database or per-center GeoJSON files.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("isochrones"); err != nil {
			return err
		}

		source, _ := cmd.Flags().GetString("source")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		force, _ := cmd.Flags().GetBool("force")

		client, err := isoline.NewClient(cfg.Isochrone.APIKey,
			isoline.WithBaseURL(cfg.Isochrone.BaseURL))
		if err != nil {
			return err
		}
		gen := isochrone.NewGenerator(client, cfg.Isochrone)

		log := zap.L().With(zap.String("command", "isochrones"), zap.String("source", source))

		switch source {
		case "db":
			return runIsochronesDB(ctx, gen, dryRun, force, log)
		case "local":
			return runIsochronesLocal(ctx, gen, dryRun, force, log)
		default:
			return eris.Wrapf(errs.ErrConfig, "isochrones: unknown source %q", source)
		}
	},
}

func runIsochronesDB(ctx context.Context, gen *isochrone.Generator, dryRun, force bool, log *zap.Logger) error {
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	if !dryRun && !force {
		exists, err := s.HasIsochrones(ctx)
		if err != nil {
			return err
		}
		if exists {
			return eris.Wrap(errs.ErrValidation,
				"isochrones: table already has rows; pass --force to reconcile into it")
		}
	}

	centers, err := s.ListCenters(ctx)
	if err != nil {
		return err
	}
	log.Info("generating isochrones", zap.Int("centers", len(centers)))

	generated, err := gen.GenerateAll(ctx, centers)
	if err != nil {
		return err
	}

	byName := make(map[string]model.Center, len(centers))
	for _, c := range centers {
		byName[c.Name] = c
	}

	rec := isochrone.NewReconciler(s)
	var errList []error
	for name, fc := range generated {
		if err := rec.Reconcile(ctx, name, fc, dryRun, byName); err != nil {
			errList = append(errList, eris.Wrapf(err, "isochrones: center %q", name))
		}
	}
	if err := errors.Join(errList...); err != nil {
		return err
	}

	fmt.Printf("Isochrones complete: %d of %d centers generated\n", len(generated), len(centers))
	return nil
}

func runIsochronesLocal(ctx context.Context, gen *isochrone.Generator, dryRun, force bool, log *zap.Logger) error {
	if !dryRun && !force {
		exists, err := local.HasOutput(cfg.Local.IsochronesDir)
		if err != nil {
			return err
		}
		if exists {
			return eris.Wrap(errs.ErrValidation,
				"isochrones: output directory is not empty; pass --force to overwrite")
		}
	}

	path := local.ResolveInput(cfg.Local.LocationsDir, cfg.Store.CentersTable)
	records, err := local.ReadRecords(path, model.DefaultColumns())
	if err != nil {
		return err
	}
	centers, err := local.Centers(records)
	if err != nil {
		return err
	}
	log.Info("generating isochrones",
		zap.String("path", path), zap.Int("centers", len(centers)))

	generated, err := gen.GenerateAll(ctx, centers)
	if err != nil {
		return err
	}

	if dryRun {
		for name, fc := range generated {
			log.Info("dry run: would write",
				zap.String("center", name), zap.Int("features", len(fc.Features)))
		}
	} else if err := local.WriteIsochrones(cfg.Local.IsochronesDir, generated); err != nil {
		return err
	}

	fmt.Printf("Isochrones complete: %d of %d centers generated\n", len(generated), len(centers))
	return nil
}

func init() {
	isochronesCmd.Flags().String("source", "db", "center source: db or local")
	isochronesCmd.Flags().Bool("dry-run", false, "generate without persisting")
	isochronesCmd.Flags().Bool("force", false, "proceed even when output already exists")
	rootCmd.AddCommand(isochronesCmd)
}
