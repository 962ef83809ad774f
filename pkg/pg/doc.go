// Package pg bootstraps the PostgreSQL layer behind the notification store:
// a pgx/v5 connection pool with startup retry, goose schema migrations, a
// healthcheck closure and error classifiers for common SQLSTATE codes.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
//
//	storage := notifications.NewPostgresStorage(pool)
//
// Configuration comes entirely from environment variables; see the field
// tags on Config for names and defaults.
package pg
