package storage

import (
	"context"
	"fmt"

	"github.com/example/transfer-booking/internal/config"
)

// Open constructs the store selected by cfg.StoreDriver. The caller owns the
// result and must Close it.
func Open(ctx context.Context, cfg config.ServerConfig) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory, "":
		return NewMemoryStore(), nil
	case config.DriverPostgres:
		pg, err := NewPostgresStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		if cfg.RunMigrations {
			if err := pg.Migrate(ctx); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return pg, nil
	case config.DriverMongo:
		mg, err := NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if cfg.RunMigrations {
			if err := mg.EnsureIndexes(ctx); err != nil {
				mg.Close()
				return nil, err
			}
		}
		return mg, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MongoStore)(nil)
)
