// Package lifecycle applies the state transitions a message goes through
// after creation: seen, hidden-for-one-viewer, deleted-for-everyone, and
// signaled. All writes go through the persistence collaborator; nothing here
// caches state.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/safechat/safechat/pkg/codec"
	"github.com/safechat/safechat/pkg/model"
	"github.com/safechat/safechat/pkg/store"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrEmptyMessage     = errors.New("message text is empty")
)

type Manager struct {
	store store.Store
}

func NewManager(s store.Store) *Manager {
	return &Manager{store: s}
}

// Send disguises text and appends a new message. A text that already looks
// disguised is stored verbatim and flagged unencrypted, matching the
// detect-before-encode gate of the send flow. Grantees are captured into
// AllowedUsers here and never change afterwards; an empty receiver targets
// the broadcast room.
func (g *Manager) Send(ctx context.Context, sender model.User, receiverID, text string, grantees []string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}

	m := model.Message{
		SenderID:   sender.ID,
		SenderName: sender.DisplayName,
		ReceiverID: receiverID,
	}
	if codec.Detect(text) {
		m.Text = text
		m.AllowedUsers = append([]string(nil), grantees...)
	} else {
		res := codec.Encode(text, grantees)
		m.Text = res.Text
		m.IsEncrypted = res.IsEncrypted
		m.AllowedUsers = res.AllowedUsers
	}

	id, err := g.store.AppendMessage(ctx, m)
	if err != nil {
		return "", fmt.Errorf("append message: %w", err)
	}
	return id, nil
}

// MarkSeen records that the receiver has rendered a directed message. Only
// the receiver may mark a message seen; marking an already-seen message is a
// no-op, not an error.
func (g *Manager) MarkSeen(ctx context.Context, viewerID, messageID string) error {
	m, err := g.message(ctx, messageID)
	if err != nil {
		return err
	}
	if m.ReceiverID == "" || m.ReceiverID != viewerID {
		return ErrPermissionDenied
	}
	if m.Seen {
		return nil
	}
	return g.store.Write(ctx, store.SeenPath(messageID), true)
}

// HideFor removes the message from viewerID's own view. Any viewer may hide
// any message they can see; other viewers are unaffected.
func (g *Manager) HideFor(ctx context.Context, viewerID, messageID string) error {
	if _, err := g.message(ctx, messageID); err != nil {
		return err
	}
	return g.store.Write(ctx, store.HiddenPath(messageID, viewerID), true)
}

// DeleteForAll clears the message text system-wide. Sender only; after this
// the message is a tombstone excluded from every rendered view, though the
// record id may persist in storage.
func (g *Manager) DeleteForAll(ctx context.Context, viewerID, messageID string) error {
	m, err := g.message(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != viewerID {
		return ErrPermissionDenied
	}
	return g.store.Write(ctx, store.TextPath(messageID), nil)
}

// Signal raises the report flag. Any viewer, one-way, never cleared.
func (g *Manager) Signal(ctx context.Context, viewerID, messageID string) error {
	m, err := g.message(ctx, messageID)
	if err != nil {
		return err
	}
	if m.Signaled {
		return nil
	}
	return g.store.Write(ctx, store.SignaledPath(messageID), true)
}

func (g *Manager) message(ctx context.Context, id string) (model.Message, error) {
	v, err := g.store.ReadOnce(ctx, store.MessagePath(id))
	if err != nil {
		return model.Message{}, err
	}
	m, ok := v.(model.Message)
	if !ok {
		return model.Message{}, fmt.Errorf("unexpected record type at %s", store.MessagePath(id))
	}
	return m, nil
}
