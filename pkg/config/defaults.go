package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "dormly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 15 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLaundryTimezone          = "UTC"
	DefaultLaundryBookingWindowDays = 7
	DefaultLaundryAlmostFullRatio   = 0.7
	DefaultLaundryMaxCapacity       = 50
	DefaultLaundryHistoryLimit      = 15
	DefaultLaundrySeedTemplate      = "07:00-08:00x2,08:00-09:00x2,18:00-19:00x2,19:00-20:00x2"

	DefaultRedisDB = 0
)
