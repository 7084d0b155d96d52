package main

import (
	"encoding/json"
	"net/http"

	"github.com/safechat/safechat/pkg/router"
	"github.com/safechat/safechat/pkg/store"
	"github.com/safechat/safechat/pkg/view"
)

// HistoryHandler returns the rendered conversation for the caller. The
// entries carry decode permission per message; nothing is revealed over the
// API, reveal state lives on the live connection.
func HistoryHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conv, err := router.ParseChannel(r.URL.Query().Get("channel_id"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}

		msgs, err := st.Messages(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		entries := view.Build(conv, msgs, nil)
		if entries == nil {
			entries = []view.Entry{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	}
}
