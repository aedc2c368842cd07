package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvLaundryTimezone          = "LAUNDRY_TIMEZONE"
	EnvLaundryBookingWindowDays = "LAUNDRY_BOOKING_WINDOW_DAYS"
	EnvLaundryAlmostFullRatio   = "LAUNDRY_ALMOST_FULL_RATIO"
	EnvLaundryMaxCapacity       = "LAUNDRY_MAX_CAPACITY"
	EnvLaundryHistoryLimit      = "LAUNDRY_HISTORY_LIMIT"
	EnvLaundrySeedTemplate      = "LAUNDRY_SEED_TEMPLATE"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvKafkaEnabled = "KAFKA_ENABLED"
)
