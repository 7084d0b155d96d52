package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
)

// PresenceHandler lists the user ids currently connected to a channel. The
// gateway maintains the sets on register and unregister.
func PresenceHandler(rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channelID := mux.Vars(r)["id"]

		users, err := rdb.SMembers(r.Context(), "channel:"+channelID+":users").Result()
		if err != nil {
			log.Printf("Failed to fetch presence for channel %s: %v", channelID, err)
			http.Error(w, "Failed to fetch presence", http.StatusInternalServerError)
			return
		}
		if users == nil {
			users = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(users)
	}
}
