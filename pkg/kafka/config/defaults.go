package kafka_config

import (
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultKafkaBrokers = "localhost:9092"

	DefaultLaundryEventsTopic    = "laundry.bookings"
	DefaultLaundryEventsDLQTopic = "laundry.bookings.dlq"
	DefaultLaundryProjectorGroup = "laundry-history-projector"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // all in-sync replicas
	DefaultProducerCompression  = "snappy"

	// A fresh projector group replays the topic; the projection is idempotent.
	DefaultConsumerStartOffset    = kafka.FirstOffset
	DefaultConsumerMinBytes       = 1
	DefaultConsumerMaxBytes       = 10 * 1024 * 1024 // 10MB
	DefaultConsumerMaxWait        = 500 * time.Millisecond
	DefaultConsumerCommitInterval = 0 // synchronous commits
	DefaultConsumerMaxRetries     = 3
	DefaultConsumerRetryBackoff   = 200 * time.Millisecond
)
