// Package config loads service configuration from the environment, with a
// .env file honored when present.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	KafkaBrokers []string
	EventsTopic  string
	ChangesTopic string
	RedisAddr    string
	ScyllaHosts  []string
	Keyspace     string
	GatewayAddr  string
	APIAddr      string
}

// Load reads the environment. Missing variables fall back to local-dev
// defaults; a .env file in the working directory is applied first.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		KafkaBrokers: splitList(getenv("KAFKA_BROKERS", "localhost:19092")),
		EventsTopic:  getenv("KAFKA_EVENTS_TOPIC", "chat-events"),
		ChangesTopic: getenv("KAFKA_CHANGES_TOPIC", "chat-changes"),
		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		ScyllaHosts:  splitList(getenv("SCYLLA_HOSTS", "localhost:9042")),
		Keyspace:     getenv("SCYLLA_KEYSPACE", "safechat"),
		GatewayAddr:  getenv("GATEWAY_ADDR", ":8080"),
		APIAddr:      getenv("API_ADDR", ":8081"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
