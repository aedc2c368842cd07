package repository

import (
	"context"

	"dormly/pkg/config"

	"go.mongodb.org/mongo-driver/mongo"
)

// pump turns a change stream into a coalescing signal channel.
func pump(ctx context.Context, stream *mongo.ChangeStream, cfg *config.Config, collection, key string) <-chan struct{} {
	signals := make(chan struct{}, 1)

	go func() {
		defer close(signals)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			select {
			case signals <- struct{}{}:
			default:
			}
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			cfg.Log.Warn("Change stream terminated",
				"collection", collection,
				"key", key,
				"error", err,
			)
		}
	}()

	return signals
}
