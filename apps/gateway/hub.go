package main

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/safechat/safechat/pkg/acl"
	"github.com/safechat/safechat/pkg/codec"
	"github.com/safechat/safechat/pkg/model"
	"github.com/safechat/safechat/pkg/notify"
	"github.com/safechat/safechat/pkg/session"
	"github.com/safechat/safechat/pkg/store"
	"github.com/safechat/safechat/pkg/view"
)

// frame is what the gateway pushes to a client.
type frame struct {
	Type     string       `json:"type"` // snapshot, notice, presence, typing, grantees
	Entries  []view.Entry `json:"entries,omitempty"`
	Kind     notify.Kind  `json:"kind,omitempty"`
	Message  string       `json:"message,omitempty"`
	UserID   string       `json:"user_id,omitempty"`
	Grantees []string     `json:"grantees,omitempty"`
}

// command is what a client sends over the socket.
type command struct {
	Action    string `json:"action"` // send, reveal, grant, grantees, hide, delete, signal, typing
	Text      string `json:"text,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

type clientCommand struct {
	client *Client
	cmd    command
}

// Hub owns all connected clients and the live message snapshot. Everything
// that touches shared state runs on the Run loop; the pumps only move bytes.
type Hub struct {
	clients     map[string]map[*Client]bool // channel_id -> clients
	userClients map[string]map[*Client]bool // user_id -> clients

	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	snapshots  chan []model.Message
	feedErrs   chan error

	store    store.Store
	grantees session.Grantees
	producer *kafka.Writer
	redis    *redis.Client

	latest []model.Message // last-known-good snapshot
	unsub  store.Unsubscribe
}

func NewHub(st store.Store, grantees session.Grantees, rdb *redis.Client, kafkaBrokers []string, eventsTopic string) *Hub {
	producer := &kafka.Writer{
		Addr:     kafka.TCP(kafkaBrokers...),
		Topic:    eventsTopic,
		Balancer: &kafka.LeastBytes{},
	}

	h := &Hub{
		clients:     make(map[string]map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		commands:    make(chan clientCommand),
		snapshots:   make(chan []model.Message, 1),
		feedErrs:    make(chan error, 1),
		store:       st,
		grantees:    grantees,
		producer:    producer,
		redis:       rdb,
	}

	h.unsub = st.SubscribeMessages(
		func(msgs []model.Message) { h.snapshots <- msgs },
		func(err error) {
			select {
			case h.feedErrs <- err:
			default:
			}
		},
	)

	return h
}

func (h *Hub) Run() {
	defer h.producer.Close()

	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msgs := <-h.snapshots:
			h.latest = msgs
			for _, clients := range h.clients {
				for client := range clients {
					h.pushView(client)
				}
			}

		case err := <-h.feedErrs:
			// Degraded mode: clients keep their last-good view.
			log.Printf("change feed error: %v", err)
			for _, clients := range h.clients {
				for client := range clients {
					h.notice(client, notify.Error, "live updates interrupted, showing last known messages")
				}
			}

		case cc := <-h.commands:
			h.handleCommand(cc.client, cc.cmd)
		}
	}
}

// Close releases the change-feed subscription.
func (h *Hub) Close() {
	if h.unsub != nil {
		h.unsub()
	}
}

func (h *Hub) addClient(client *Client) {
	channelID := client.conv.ChannelID()
	if h.clients[channelID] == nil {
		h.clients[channelID] = make(map[*Client]bool)
	}
	h.clients[channelID][client] = true

	if h.userClients[client.user.ID] == nil {
		h.userClients[client.user.ID] = make(map[*Client]bool)
	}
	h.userClients[client.user.ID][client] = true

	err := h.redis.SAdd(context.Background(), "channel:"+channelID+":users", client.user.ID).Err()
	if err != nil {
		log.Printf("Failed to set presence for %s: %v", client.user.ID, err)
	}
	log.Printf("Client registered: %s in channel %s", client.user.ID, channelID)

	h.presence(channelID, client.user.ID, "joined")
	h.pushView(client)
}

func (h *Hub) removeClient(client *Client) {
	channelID := client.conv.ChannelID()
	clients, ok := h.clients[channelID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, channelID)
	}

	if conns, ok := h.userClients[client.user.ID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.userClients, client.user.ID)
		}
	}

	err := h.redis.SRem(context.Background(), "channel:"+channelID+":users", client.user.ID).Err()
	if err != nil {
		log.Printf("Failed to delete presence for %s: %v", client.user.ID, err)
	}
	log.Printf("Client unregistered: %s from channel %s", client.user.ID, channelID)

	h.presence(channelID, client.user.ID, "left")
}

func (h *Hub) handleCommand(client *Client, cmd command) {
	switch cmd.Action {
	case "", "send":
		h.handleSend(client, cmd.Text)

	case "reveal":
		h.handleReveal(client, cmd.MessageID)

	case "grant":
		h.handleGrant(client, cmd.UserID)

	case "grantees":
		h.sendGrantees(client)

	case "hide":
		h.publishLifecycle(client, model.TypeHide, cmd.MessageID, "message hidden for you")

	case "delete":
		m := h.find(cmd.MessageID)
		if m == nil {
			h.notice(client, notify.Error, "message not found")
			return
		}
		if m.SenderID != client.user.ID {
			h.notice(client, notify.Error, "only the sender can delete for everyone")
			return
		}
		h.publishLifecycle(client, model.TypeDelete, cmd.MessageID, "message deleted for everyone")

	case "signal":
		h.publishLifecycle(client, model.TypeSignal, cmd.MessageID, "message reported")

	case "typing":
		h.fanoutTyping(client)

	default:
		h.notice(client, notify.Error, "unknown action "+cmd.Action)
	}
}

func (h *Hub) handleSend(client *Client, text string) {
	if strings.TrimSpace(text) == "" {
		h.notice(client, notify.Error, "cannot send an empty message")
		return
	}

	// The selection gates who may decode; if it cannot be read the send
	// must not go out unrestricted.
	grantees, err := h.grantees.List(context.Background(), client.user.ID)
	if err != nil {
		log.Printf("grantee selection lookup failed for %s: %v", client.user.ID, err)
		h.notice(client, notify.Error, "could not load your decrypt access selection, message not sent")
		return
	}

	ev := model.Event{
		Type:       model.TypeMessage,
		Sender:     &client.user,
		ReceiverID: client.conv.Other(),
		Content:    text,
		Grantees:   grantees,
		Timestamp:  time.Now().UTC(),
	}
	if err := h.publishEvent(ev); err != nil {
		log.Printf("Failed to publish send for %s: %v", client.user.ID, err)
		h.notice(client, notify.Error, "failed to send message")
	}
}

// handleReveal toggles the session-local decoded display of one message.
// Revealing requires decode permission; concealing is always allowed. The
// display form is computed here, once per toggle, so it stays stable across
// snapshot pushes.
func (h *Hub) handleReveal(client *Client, messageID string) {
	if client.revealed.Shown(messageID) {
		client.revealed.Conceal(messageID)
		h.pushView(client)
		return
	}

	m := h.find(messageID)
	if m == nil {
		h.notice(client, notify.Error, "message not found")
		return
	}
	if !acl.CanDecode(client.user.ID, m) {
		h.notice(client, notify.Error, "you are not allowed to decrypt this message")
		return
	}

	display := codec.Decode(m.Text)
	if !m.IsEncrypted {
		// Toggling a verbatim-stored message shows its disguised form.
		display = codec.Encode(m.Text, nil).Text
	}
	client.revealed.Reveal(messageID, display)
	h.pushView(client)
}

func (h *Hub) handleGrant(client *Client, userID string) {
	if userID == "" || userID == client.user.ID {
		h.notice(client, notify.Error, "pick another user to grant decrypt access")
		return
	}
	selected, err := h.grantees.Toggle(context.Background(), client.user.ID, userID)
	if err != nil {
		h.notice(client, notify.Error, "could not update decrypt access")
		return
	}
	if selected {
		h.notice(client, notify.Success, userID+" can now decrypt your messages")
	} else {
		h.notice(client, notify.Success, userID+" can no longer decrypt your messages")
	}
	h.sendGrantees(client)
}

func (h *Hub) publishLifecycle(client *Client, t model.EventType, messageID, okNotice string) {
	if messageID == "" {
		h.notice(client, notify.Error, "message id required")
		return
	}
	ev := model.Event{
		Type:      t,
		MessageID: messageID,
		ViewerID:  client.user.ID,
		Timestamp: time.Now().UTC(),
	}
	if err := h.publishEvent(ev); err != nil {
		log.Printf("Failed to publish %s for %s: %v", t, client.user.ID, err)
		h.notice(client, notify.Error, "operation failed, nothing was changed")
		return
	}
	h.notice(client, notify.Info, okNotice)
}

func (h *Hub) publishEvent(ev model.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.producer.WriteMessages(context.Background(), kafka.Message{
		Value: payload,
		Time:  time.Now(),
	})
}

// pushView renders and sends the client's conversation, then fires
// mark-seen writes for directed messages the client is now rendering. The
// seen writes are fire-and-forget, deduplicated per connection; the worker
// treats a repeat as a no-op anyway.
func (h *Hub) pushView(client *Client) {
	entries := view.Build(client.conv, h.latest, client.revealed.Set())
	h.sendFrame(client, frame{Type: "snapshot", Entries: entries})

	for _, id := range view.UnseenDirected(client.user.ID, entries) {
		if client.seenSent[id] {
			continue
		}
		client.seenSent[id] = true
		ev := model.Event{
			Type:      model.TypeSeen,
			MessageID: id,
			ViewerID:  client.user.ID,
			Timestamp: time.Now().UTC(),
		}
		go func(ev model.Event) {
			if err := h.publishEvent(ev); err != nil {
				log.Printf("Failed to publish seen for %s: %v", ev.MessageID, err)
			}
		}(ev)
	}
}

func (h *Hub) sendGrantees(client *Client) {
	ids, err := h.grantees.List(context.Background(), client.user.ID)
	if err != nil {
		h.notice(client, notify.Error, "could not load decrypt access list")
		return
	}
	h.sendFrame(client, frame{Type: "grantees", Grantees: ids})
}

func (h *Hub) fanoutTyping(client *Client) {
	f := frame{Type: "typing", UserID: client.user.ID}
	for peer := range h.clients[client.conv.ChannelID()] {
		if peer.user.ID == client.user.ID {
			continue
		}
		h.sendFrame(peer, f)
	}
}

func (h *Hub) presence(channelID, userID, what string) {
	f := frame{Type: "presence", UserID: userID, Message: what}
	for client := range h.clients[channelID] {
		if client.user.ID == userID {
			continue
		}
		h.sendFrame(client, f)
	}
}

func (h *Hub) notice(client *Client, kind notify.Kind, message string) {
	h.sendFrame(client, frame{Type: "notice", Kind: kind, Message: message})
}

func (h *Hub) sendFrame(client *Client, f frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		log.Printf("Failed to marshal frame: %v", err)
		return
	}
	select {
	case client.send <- payload:
	default:
		// Slow consumer; drop the connection like any stalled peer.
		h.removeClient(client)
	}
}

func (h *Hub) find(messageID string) *model.Message {
	for i := range h.latest {
		if h.latest[i].ID == messageID {
			return &h.latest[i]
		}
	}
	return nil
}
