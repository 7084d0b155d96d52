package main

import (
	"log"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/safechat/safechat/pkg/config"
	"github.com/safechat/safechat/pkg/session"
	"github.com/safechat/safechat/pkg/store"
)

func main() {
	f, err := os.OpenFile("gateway.log", os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	defer f.Close()
	log.SetOutput(f)

	cfg := config.Load()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	st, err := store.NewScylla(cfg.ScyllaHosts, cfg.Keyspace, cfg.KafkaBrokers, cfg.ChangesTopic, 1)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer st.Close()

	hub := NewHub(st, session.NewRedisGrantees(rdb), rdb, cfg.KafkaBrokers, cfg.EventsTopic)
	defer hub.Close()
	go hub.Run()

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})

	log.Printf("Gateway Service Starting on %s...", cfg.GatewayAddr)
	if err := http.ListenAndServe(cfg.GatewayAddr, nil); err != nil {
		log.Fatal(err)
	}
}
