// Package pg provides PostgreSQL persistence for notification state using the
// pgx/v5 driver and goose/v3 migrations.
//
//   - Config is populated from environment variables via github.com/caarlos0/env
//     and controls pool limits, retries and the migrations table.
//   - Connect opens a *pgxpool.Pool, retrying with a linearly growing wait.
//   - Migrate runs the migrations embedded in this package (or a directory
//     named by PG_MIGRATIONS_PATH) through goose.
//   - Store implements kvstore.Store on the notification_kv table.
//   - Healthcheck reports ready once the database answers and the schema exists.
//
// # Usage
//
//	cfg, err := config.Load[pg.Config]()
//	if err != nil {
//	    return err
//	}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
//	store := pg.NewStore(pool)
package pg
