// Package redis bootstraps the Redis client behind the Redis-backed
// notification store: URL-based configuration, startup retry and a
// healthcheck closure.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	storage := notifications.NewRedisStorage(client)
package redis
