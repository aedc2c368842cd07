package config

import (
	"strings"
	"testing"
	"time"

	"dormly/pkg/logger"
)

func validConfig() *Config {
	return &Config{
		MongoURI:          DefaultMongoURI,
		MongoDatabaseName: DefaultMongoDatabaseName,
		MongoConnTimeout:  DefaultMongoConnTimeout,
		Port:              DefaultPort,
		RateLimitRequests: DefaultRateLimitRequests,
		RateLimitWindow:   DefaultRateLimitWindow,
		RequestTimeout:    DefaultRequestTimeout,
		IdempotencyTTL:    DefaultIdempotencyTTL,
		MaxRequestSize:    DefaultMaxRequestSize,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		ShutdownTimeout:   DefaultShutdownTimeout,
		Timezone:          DefaultLaundryTimezone,
		BookingWindowDays: DefaultLaundryBookingWindowDays,
		AlmostFullRatio:   DefaultLaundryAlmostFullRatio,
		MaxSlotCapacity:   DefaultLaundryMaxCapacity,
		HistoryLimit:      DefaultLaundryHistoryLimit,
		Log:               logger.Discard(),
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got: %v", err)
	}
	if cfg.Location == nil || cfg.Location.String() != "UTC" {
		t.Errorf("expected Location to be resolved to UTC, got %v", cfg.Location)
	}
}

func TestValidate_Timezone(t *testing.T) {
	cfg := validConfig()
	cfg.Timezone = "Europe/Berlin"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Location.String() != "Europe/Berlin" {
		t.Errorf("expected Europe/Berlin, got %s", cfg.Location)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Port = "99999" }, "Port must be between"},
		{"bad mongo uri", func(c *Config) { c.MongoURI = "postgres://localhost" }, "MongoURI must start with"},
		{"empty database", func(c *Config) { c.MongoDatabaseName = "" }, "MongoDatabaseName cannot be empty"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "Timezone must be a valid"},
		{"zero window", func(c *Config) { c.BookingWindowDays = 0 }, "BookingWindowDays"},
		{"ratio above one", func(c *Config) { c.AlmostFullRatio = 1.5 }, "AlmostFullRatio"},
		{"zero capacity", func(c *Config) { c.MaxSlotCapacity = 0 }, "MaxSlotCapacity"},
		{"negative redis db", func(c *Config) { c.RedisDB = -1 }, "RedisDB"},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 * time.Second }, "RequestTimeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_NumbersEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.MongoDatabaseName = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "1. ") || !strings.Contains(err.Error(), "2. ") {
		t.Errorf("expected a numbered list of problems, got: %v", err)
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:secret@db:27017/?replicaSet=rs0")
	if strings.Contains(got, "secret") || strings.Contains(got, "admin") {
		t.Errorf("expected credentials to be redacted, got %s", got)
	}
}

func TestRedisEnabled(t *testing.T) {
	cfg := validConfig()
	if cfg.RedisEnabled() {
		t.Error("expected redis disabled without an address")
	}
	cfg.RedisAddr = "localhost:6379"
	if !cfg.RedisEnabled() {
		t.Error("expected redis enabled with an address")
	}
}

func TestHistoryProjectionEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.RedisAddr = "localhost:6379"
	if cfg.HistoryProjectionEnabled() {
		t.Error("expected the projection off while Kafka is disabled")
	}
	cfg.KafkaEnabled = true
	if !cfg.HistoryProjectionEnabled() {
		t.Error("expected the projection on with Redis and Kafka")
	}
	cfg.RedisAddr = ""
	if cfg.HistoryProjectionEnabled() {
		t.Error("expected the projection off without Redis")
	}
}
