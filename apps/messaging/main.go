package main

import (
	"context"
	"log"

	"github.com/safechat/safechat/pkg/config"
	"github.com/safechat/safechat/pkg/lifecycle"
	"github.com/safechat/safechat/pkg/store"
)

func main() {
	cfg := config.Load()

	// Note: In production, schema creation should be handled by migration
	// tools; see scripts/create_tables for the local-dev path.
	st, err := store.NewScylla(cfg.ScyllaHosts, cfg.Keyspace, cfg.KafkaBrokers, cfg.ChangesTopic, 3)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer st.Close()

	manager := lifecycle.NewManager(st)

	consumer := NewConsumer(cfg.KafkaBrokers, cfg.EventsTopic, "messaging-service-group", manager)
	defer consumer.Close()

	log.Println("Starting Kafka Consumer...")
	consumer.Consume(context.Background())
}
