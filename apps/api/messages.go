package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/safechat/safechat/pkg/lifecycle"
)

type SendRequest struct {
	ReceiverID string   `json:"receiver_id"` // empty targets the broadcast room
	Text       string   `json:"text"`
	Grantees   []string `json:"grantees"`
}

type SendResponse struct {
	ID string `json:"id"`
}

// SendHandler appends a message synchronously, bypassing the event pipeline.
// The text goes through the same disguise-on-send path as the gateway.
func SendHandler(manager *lifecycle.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		id, err := manager.Send(r.Context(), claims.User(), req.ReceiverID, req.Text, req.Grantees)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SendResponse{ID: id})
	}
}

func SeenHandler(manager *lifecycle.Manager) http.HandlerFunc {
	return lifecycleHandler(manager.MarkSeen)
}

func HideHandler(manager *lifecycle.Manager) http.HandlerFunc {
	return lifecycleHandler(manager.HideFor)
}

func DeleteHandler(manager *lifecycle.Manager) http.HandlerFunc {
	return lifecycleHandler(manager.DeleteForAll)
}

func SignalHandler(manager *lifecycle.Manager) http.HandlerFunc {
	return lifecycleHandler(manager.Signal)
}

// lifecycleHandler wraps one message transition: the caller is the viewer,
// the message id comes from the path, success is an empty 200.
func lifecycleHandler(op func(ctx context.Context, viewerID, messageID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if err := op(r.Context(), claims.UserID, mux.Vars(r)["id"]); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
