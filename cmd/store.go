package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/reach-cli/internal/errs"
	"github.com/sells-group/reach-cli/internal/store"
)

func configuredTables() store.Tables {
	return store.Tables{
		Centers:    cfg.Store.CentersTable,
		Locations:  cfg.Store.LocationsTable,
		Isochrones: cfg.Store.IsochronesTable,
	}
}

// openStore builds the configured database backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, configuredTables())
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL, configuredTables())
	default:
		return nil, eris.Wrapf(errs.ErrConfig, "store: unsupported driver %q", cfg.Store.Driver)
	}
}
