package main

import (
	"log"

	"github.com/gocql/gocql"

	"github.com/safechat/safechat/pkg/config"
)

func main() {
	cfg := config.Load()

	cluster := gocql.NewCluster(cfg.ScyllaHosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	for _, table := range []string{"messages", "users"} {
		log.Printf("Dropping table %s...", table)
		if err := session.Query("DROP TABLE IF EXISTS " + table).Exec(); err != nil {
			log.Fatalf("Failed to drop table: %v", err)
		}
	}
	log.Println("Tables dropped successfully.")
}
