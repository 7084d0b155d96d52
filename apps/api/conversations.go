package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/safechat/safechat/pkg/router"
	"github.com/safechat/safechat/pkg/store"
)

type Conversation struct {
	ChannelID   string    `json:"channel_id"`
	OtherUserID string    `json:"other_user_id"`
	LastUpdated time.Time `json:"last_updated"`
	UnreadCount int       `json:"unread_count"`
}

// ConversationsHandler lists the caller's active direct threads, newest
// first, each with the count of directed messages not yet marked seen. The
// list is derived from the message collection on every call rather than kept
// as a separate table.
func ConversationsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		msgs, err := st.Messages(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		byPartner := make(map[string]*Conversation)
		for i := range msgs {
			m := &msgs[i]
			if m.Broadcast() || m.Tombstone() || m.HiddenFor(claims.UserID) {
				continue
			}
			var partner string
			switch claims.UserID {
			case m.SenderID:
				partner = m.ReceiverID
			case m.ReceiverID:
				partner = m.SenderID
			default:
				continue
			}

			c := byPartner[partner]
			if c == nil {
				c = &Conversation{
					ChannelID:   router.DirectThread(claims.UserID, partner).ChannelID(),
					OtherUserID: partner,
				}
				byPartner[partner] = c
			}
			if m.Timestamp.After(c.LastUpdated) {
				c.LastUpdated = m.Timestamp
			}
			if m.ReceiverID == claims.UserID && !m.Seen {
				c.UnreadCount++
			}
		}

		conversations := make([]Conversation, 0, len(byPartner))
		for _, c := range byPartner {
			conversations = append(conversations, *c)
		}
		sort.Slice(conversations, func(i, j int) bool {
			return conversations[i].LastUpdated.After(conversations[j].LastUpdated)
		})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conversations)
	}
}
