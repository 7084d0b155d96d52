package main

import (
	"log"

	"github.com/gocql/gocql"

	"github.com/safechat/safechat/pkg/config"
)

func main() {
	cfg := config.Load()

	sysCluster := gocql.NewCluster(cfg.ScyllaHosts...)
	sysCluster.Keyspace = "system"
	sysCluster.Consistency = gocql.Quorum
	sysSession, err := sysCluster.CreateSession()
	if err != nil {
		log.Fatal(err)
	}

	err = sysSession.Query(`
		CREATE KEYSPACE IF NOT EXISTS ` + cfg.Keyspace + `
		WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }
	`).Exec()
	sysSession.Close()
	if err != nil {
		log.Fatal(err)
	}

	cluster := gocql.NewCluster(cfg.ScyllaHosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	err = session.Query(`
		CREATE TABLE IF NOT EXISTS messages (
			bucket text,
			id bigint,
			sender_id text,
			sender_name text,
			receiver_id text,
			content text,
			is_encrypted boolean,
			allowed_users list<text>,
			seen boolean,
			deleted_for map<text, boolean>,
			signaled boolean,
			ts timestamp,
			PRIMARY KEY (bucket, id)
		) WITH CLUSTERING ORDER BY (id ASC)
	`).Exec()
	if err != nil {
		log.Fatal(err)
	}

	err = session.Query(`
		CREATE TABLE IF NOT EXISTS users (
			id text PRIMARY KEY,
			display_name text,
			email text
		)
	`).Exec()
	if err != nil {
		log.Fatal(err)
	}

	log.Println("Tables created successfully")
}
