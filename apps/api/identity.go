package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/safechat/safechat/pkg/auth"
	"github.com/safechat/safechat/pkg/model"
	"github.com/safechat/safechat/pkg/store"
)

type LoginRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// LoginHandler registers or refreshes an identity record and issues a token
// for it. Identity is externally asserted; this service does not verify
// passwords.
func LoginHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		req.UserID = strings.TrimSpace(req.UserID)
		if req.UserID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}
		if req.DisplayName == "" {
			req.DisplayName = req.UserID
		}

		u := model.User{ID: req.UserID, DisplayName: req.DisplayName, Email: req.Email}
		if err := st.PutUser(r.Context(), u); err != nil {
			writeError(w, err)
			return
		}

		token, err := auth.GenerateToken(u)
		if err != nil {
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(LoginResponse{Token: token, User: u})
	}
}

// UsersHandler lists every known identity, the pool a sender picks grantees
// from.
func UsersHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := st.Users(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if users == nil {
			users = []model.User{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(users)
	}
}
