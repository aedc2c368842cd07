package kafka_config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "broker-a:9092, broker-b:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "broker-b:9092" {
		t.Errorf("expected trimmed brokers, got %v", cfg.Brokers)
	}
	if cfg.EventsTopic != DefaultLaundryEventsTopic {
		t.Errorf("unexpected topic %s", cfg.EventsTopic)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Setenv(EnvLaundryEventsTopic, "same")
	t.Setenv(EnvLaundryEventsDLQTopic, "same")
	t.Setenv(EnvKafkaProducerCompression, "brotli")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"DLQTopic must differ", "ProducerCompression"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}
