package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dormly/internal/laundry/projection"
	"dormly/pkg/client"
	"dormly/pkg/config"
	"dormly/pkg/logger"
)

func TestHistoryBackend(t *testing.T) {
	tests := []struct {
		name          string
		redisAddr     string
		kafkaEnabled  bool
		wantKind      string
		wantRebuilder bool
	}{
		{name: "no redis", wantKind: "mongo"},
		{name: "redis without kafka", redisAddr: "localhost:6379", wantKind: "mongo"},
		{name: "kafka without redis", kafkaEnabled: true, wantKind: "mongo"},
		{name: "redis and kafka", redisAddr: "localhost:6379", kafkaEnabled: true, wantKind: "redis", wantRebuilder: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				RedisAddr:    tt.redisAddr,
				KafkaEnabled: tt.kafkaEnabled,
				Log:          logger.Discard(),
				Client:       client.NewClient(),
			}

			store, rebuilder, kind := historyBackend(cfg, nil)

			assert.Equal(t, tt.wantKind, kind)
			assert.NotNil(t, store)
			_, isProjection := store.(*projection.Store)
			assert.Equal(t, tt.wantRebuilder, isProjection)
			assert.Equal(t, tt.wantRebuilder, rebuilder != nil)
		})
	}
}
