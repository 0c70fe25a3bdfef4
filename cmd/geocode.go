package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/reach-cli/internal/errs"
	"github.com/sells-group/reach-cli/internal/local"
	"github.com/sells-group/reach-cli/internal/model"
	"github.com/sells-group/reach-cli/internal/reconcile"
	"github.com/sells-group/reach-cli/pkg/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Resolve missing coordinates for an address table",
	Long:  "Geocodes records missing coordinates or carrying prior errors, with street-address, place-name, and city-center fallback stages.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("geocode"); err != nil {
			return err
		}

		source, _ := cmd.Flags().GetString("source")
		table, _ := cmd.Flags().GetString("table")
		if table == "" {
			table = cfg.Store.LocationsTable
		}

		resolver := geocode.NewResolver(geocode.NewClient(
			geocode.WithBaseURL(cfg.Geocoder.BaseURL),
			geocode.WithUserAgent(cfg.Geocoder.UserAgent),
			geocode.WithTimeout(cfg.Geocoder.Timeout()),
			geocode.WithRateLimit(cfg.Geocoder.RateLimit),
		))

		log := zap.L().With(zap.String("command", "geocode"), zap.String("table", table))

		var sum reconcile.Summary
		var err error
		switch source {
		case "db":
			sum, err = runGeocodeDB(ctx, resolver, table, log)
		case "local":
			sum, err = runGeocodeLocal(ctx, resolver, table, log)
		default:
			return eris.Wrapf(errs.ErrConfig, "geocode: unknown source %q", source)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Geocode complete: %d processed, %d resolved, %d unresolved\n",
			sum.Processed, sum.Succeeded, sum.Failed)
		return nil
	},
}

func runGeocodeDB(ctx context.Context, resolver reconcile.Resolver, table string, log *zap.Logger) (reconcile.Summary, error) {
	var sum reconcile.Summary

	s, err := openStore(ctx)
	if err != nil {
		return sum, err
	}
	defer s.Close() //nolint:errcheck

	records, err := s.ListRecords(ctx, table)
	if err != nil {
		return sum, err
	}
	log.Info("starting geocode pass", zap.Int("records", len(records)))

	sum, err = reconcile.Reconcile(ctx, records, resolver)
	if err != nil {
		return sum, eris.Wrap(err, "geocode: reconcile")
	}
	for _, rec := range records {
		if !rec.NeedsUpdate {
			continue
		}
		if err := s.UpdateRecordGeocode(ctx, table, rec); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func runGeocodeLocal(ctx context.Context, resolver reconcile.Resolver, table string, log *zap.Logger) (reconcile.Summary, error) {
	var sum reconcile.Summary

	path := local.ResolveInput(cfg.Local.LocationsDir, table)
	records, err := local.ReadRecords(path, model.DefaultColumns())
	if err != nil {
		return sum, err
	}
	log.Info("starting geocode pass",
		zap.String("path", path), zap.Int("records", len(records)))

	sum, err = reconcile.Reconcile(ctx, records, resolver)
	if err != nil {
		return sum, eris.Wrap(err, "geocode: reconcile")
	}
	if sum.Processed == 0 {
		log.Info("no records needed geocoding; output unchanged")
		return sum, nil
	}

	out := filepath.Join(cfg.Local.LocationsDir, local.GeocodedName(table))
	if err := local.WriteRecords(out, records); err != nil {
		return sum, err
	}
	return sum, nil
}

func init() {
	geocodeCmd.Flags().String("source", "db", "record source: db or local")
	geocodeCmd.Flags().String("table", "", "table to geocode (defaults to the locations table)")
	rootCmd.AddCommand(geocodeCmd)
}
