package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/safechat/safechat/pkg/config"
	"github.com/safechat/safechat/pkg/lifecycle"
	"github.com/safechat/safechat/pkg/store"
)

func main() {
	cfg := config.Load()

	st, err := store.NewScylla(cfg.ScyllaHosts, cfg.Keyspace, cfg.KafkaBrokers, cfg.ChangesTopic, 2)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer st.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	manager := lifecycle.NewManager(st)

	r := mux.NewRouter()
	r.Use(RequestIDMiddleware, CORSMiddleware)

	// Public endpoint
	r.HandleFunc("/login", LoginHandler(st)).Methods(http.MethodPost, http.MethodOptions)

	// Protected endpoints
	api := r.NewRoute().Subrouter()
	api.Use(AuthMiddleware)
	api.HandleFunc("/users", UsersHandler(st)).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/history", HistoryHandler(st)).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/conversations", ConversationsHandler(st)).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/channels/{id}/users", PresenceHandler(rdb)).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/messages", SendHandler(manager)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/messages/{id}/seen", SeenHandler(manager)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/messages/{id}/hide", HideHandler(manager)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/messages/{id}/delete", DeleteHandler(manager)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/messages/{id}/signal", SignalHandler(manager)).Methods(http.MethodPost, http.MethodOptions)

	log.Printf("API Service Starting on %s...", cfg.APIAddr)
	if err := http.ListenAndServe(cfg.APIAddr, r); err != nil {
		log.Fatal(err)
	}
}
