package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// Open constructs a Store for the configured driver ("postgres" or
// "sqlite") and runs migrations.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "postgres":
		s, err = NewPostgres(ctx, dsn, poolCfg)
	case "sqlite":
		s, err = NewSQLite(dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q (valid: postgres, sqlite)", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
