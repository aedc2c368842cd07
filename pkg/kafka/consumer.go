package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kafka_config "dormly/pkg/kafka/config"
	"dormly/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Consumer reads one topic as part of a consumer group. A message is
// committed once its handler succeeds, once it reaches the dead letter topic,
// or when it fails permanently and no dead letter topic is configured.
// Anything else stops the consumer with the offset left uncommitted.
type Consumer struct {
	reader       *kafka.Reader
	dlqWriter    *kafka.Writer
	topic        string
	groupID      string
	maxRetries   int
	retryBackoff time.Duration
	handler      MessageHandler
	middleware   []ConsumerMiddleware
	log          *logger.Logger
	closed       bool
	mu           sync.RWMutex
	wg           sync.WaitGroup
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

func NewConsumer(cfg *kafka_config.Config, topic, groupID, dlqTopic string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("topic cannot be empty")
	}
	if groupID == "" {
		return nil, errors.New("group ID cannot be empty")
	}
	if handler == nil {
		return nil, errors.New("message handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       cfg.ConsumerMinBytes,
		MaxBytes:       cfg.ConsumerMaxBytes,
		MaxWait:        cfg.ConsumerMaxWait,
		CommitInterval: cfg.ConsumerCommitInterval,
		StartOffset:    cfg.ConsumerStartOffset,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error(fmt.Sprintf(msg, args...), "topic", topic, "group", groupID)
		}),
	})

	c := &Consumer{
		reader:       reader,
		topic:        topic,
		groupID:      groupID,
		maxRetries:   cfg.ConsumerMaxRetries,
		retryBackoff: cfg.ConsumerRetryBackoff,
		handler:      handler,
		log:          log,
	}
	if dlqTopic != "" {
		c.dlqWriter = newWriter(cfg, dlqTopic, 3, kafka.RequireAll, log)
	}
	return c, nil
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.wg.Add(1)
	handler := c.chain()
	c.mu.RUnlock()
	defer c.wg.Done()

	for {
		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("Failed to fetch message", "topic", c.topic, "error", err)
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		msg := fromKafkaMessage(km)
		commit, err := c.process(ctx, handler, msg)
		if err != nil {
			if ctx.Err() != nil {
				// leave the offset uncommitted; the message is redelivered
				return ctx.Err()
			}
			c.log.Error("Message processing failed",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", msg.Key,
				"committed", commit,
				"error", err,
			)
			if !commit {
				return fmt.Errorf("%w: %s/%d offset %d: %w", ErrMessageNotCommitted, msg.Topic, msg.Partition, msg.Offset, err)
			}
		}

		if err := c.reader.CommitMessages(ctx, km); err != nil && ctx.Err() == nil {
			c.log.Error("Failed to commit offset", "topic", c.topic, "offset", km.Offset, "error", err)
		}
	}
}

func (c *Consumer) chain() MessageHandler {
	handler := c.handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw := c.middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}
	return handler
}

// process runs handler with bounded retries for transient failures. A
// message that still fails goes to the dead letter topic. The returned bool
// reports whether the offset may be committed.
func (c *Consumer) process(ctx context.Context, handler MessageHandler, msg Message) (bool, error) {
	var err error
	for attempt := 0; ; attempt++ {
		err = handler(ctx, msg)
		if err == nil {
			return true, nil
		}
		if !ShouldRetry(err, attempt, c.maxRetries) {
			break
		}
		msg.SetRetryCount(attempt + 1)
		backoff := c.retryBackoff * time.Duration(1<<attempt)
		c.log.Warn("Retrying message", "attempt", attempt+1, "max_retries", c.maxRetries, "backoff", backoff, "error", err)
		if !sleep(ctx, backoff) {
			return false, ctx.Err()
		}
	}

	if c.dlqWriter == nil {
		// a permanent failure never succeeds on redelivery
		return ClassifyError(err) == ErrorTypePermanent, err
	}
	if dlqErr := c.sendToDLQ(ctx, msg, err); dlqErr != nil {
		return false, fmt.Errorf("failed to send message to DLQ: %v (original error: %w)", dlqErr, err)
	}
	c.log.Warn("Message sent to DLQ", "key", msg.Key, "offset", msg.Offset, "error", err)
	return true, err
}

func (c *Consumer) sendToDLQ(ctx context.Context, msg Message, originalErr error) error {
	msg.Headers[HeaderOriginalTopic] = c.topic
	msg.Headers[HeaderDLQError] = originalErr.Error()
	msg.Headers[HeaderDLQTimestamp] = time.Now().UTC().Format(time.RFC3339)
	msg.Headers[HeaderDLQGroup] = c.groupID
	msg.Timestamp = time.Now().UTC()

	return c.dlqWriter.WriteMessages(ctx, toKafkaMessage(msg))
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Close waits for Start to return, so cancel its context first.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()

	err := c.reader.Close()
	if c.dlqWriter != nil {
		if dlqErr := c.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}

func (c *Consumer) Stats() kafka.ReaderStats {
	return c.reader.Stats()
}
