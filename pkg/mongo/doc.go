// Package mongo bootstraps the MongoDB client behind the document-backed
// notification store: environment-driven configuration, startup retry and a
// healthcheck closure.
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "memberkit")
//	if err != nil {
//	    return err
//	}
//	storage := notifications.NewMongoStorage(db)
package mongo
