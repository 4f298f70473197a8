// Package mongo connects to MongoDB and stores notification state in it.
//
// New retries the initial connection using Config, which is populated from
// environment variables. Store implements kvstore.Store with one document per
// key ({_id, value, updated_at}). Healthcheck pings the primary.
//
// # Usage
//
//	cfg, err := config.Load[mongo.Config]()
//	if err != nil {
//	    return err
//	}
//	client, err := mongo.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Disconnect(context.Background())
//
//	store := mongo.NewStoreFromConfig(client, cfg)
package mongo
