package model

import "time"

type EventType string

const (
	TypeMessage  EventType = "message"
	TypeSeen     EventType = "seen"
	TypeHide     EventType = "hide"
	TypeDelete   EventType = "delete"
	TypeSignal   EventType = "signal"
	TypeTyping   EventType = "typing"
	TypePresence EventType = "presence"
)

// Message is the stored record shape. ID and Timestamp are assigned by the
// store on append; SenderID, ReceiverID and AllowedUsers never change after
// creation.
type Message struct {
	ID           string          `json:"id"`
	Text         string          `json:"text"`
	SenderID     string          `json:"sender_id"`
	SenderName   string          `json:"sender_name,omitempty"`
	ReceiverID   string          `json:"receiver_id,omitempty"` // empty means broadcast
	Timestamp    time.Time       `json:"timestamp"`
	IsEncrypted  bool            `json:"is_encrypted"`
	AllowedUsers []string        `json:"allowed_users,omitempty"` // empty means everyone may decode
	Seen         bool            `json:"seen"`
	DeletedFor   map[string]bool `json:"deleted_for,omitempty"`
	Signaled     bool            `json:"signaled"`
}

// Broadcast reports whether the message belongs to the shared room rather
// than a pairwise thread.
func (m *Message) Broadcast() bool { return m.ReceiverID == "" }

// Tombstone reports whether the message was deleted for everyone. Sends
// reject empty text, so a nulled-out content column is unambiguous.
func (m *Message) Tombstone() bool { return m.Text == "" }

// HiddenFor reports whether viewerID deleted the message from their own view.
func (m *Message) HiddenFor(viewerID string) bool {
	return m.DeletedFor[viewerID]
}

// User is an identity record issued by the auth collaborator.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

// Event is the wire shape on the chat-events topic: viewer commands produced
// by the gateway or api and applied by the messaging worker. Send commands
// carry Sender/ReceiverID/Content/Grantees; lifecycle commands carry
// MessageID/ViewerID. Typing and presence events are ephemeral and never
// persisted.
type Event struct {
	Type       EventType `json:"type"`
	Sender     *User     `json:"sender,omitempty"`
	ReceiverID string    `json:"receiver_id,omitempty"`
	Content    string    `json:"content,omitempty"`
	Grantees   []string  `json:"grantees,omitempty"`
	MessageID  string    `json:"message_id,omitempty"`
	ViewerID   string    `json:"viewer_id,omitempty"`
	ChannelID  string    `json:"channel_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
