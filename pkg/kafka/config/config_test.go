package kafka_config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "broker-1:9092, broker-2:9092")

	cfg := Load()
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "broker-2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.Brokers)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Load()
	cfg.ProducerCompression = "brotli"
	cfg.ProducerRequireAcks = 2
	cfg.ConsumerStartOffset = 42

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}
