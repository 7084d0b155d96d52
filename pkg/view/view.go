// Package view renders a conversation for one viewer: the routed snapshot,
// each message annotated with decode permission and, when the viewer toggled
// it, its decoded display form. Which messages are currently revealed is
// session-local state and never persisted.
package view

import (
	"github.com/safechat/safechat/pkg/acl"
	"github.com/safechat/safechat/pkg/model"
	"github.com/safechat/safechat/pkg/router"
)

// Entry is one rendered message. Display is what the viewer sees right now;
// Text inside the embedded message stays the stored form.
type Entry struct {
	model.Message
	CanDecode bool   `json:"can_decode"`
	Revealed  bool   `json:"revealed"`
	Display   string `json:"display"`
}

// Build filters msgs to the conversation and annotates each entry for the
// context's viewer. revealed maps message ids to the display form captured
// when the viewer toggled them open; it is applied only where the viewer may
// decode, so a stale or forged entry cannot leak a restricted message.
func Build(conv router.Context, msgs []model.Message, revealed map[string]string) []Entry {
	visible := router.VisibleIn(conv, msgs)
	out := make([]Entry, 0, len(visible))
	for _, m := range visible {
		e := Entry{
			Message:   m,
			CanDecode: acl.CanDecode(conv.Viewer(), &m),
			Display:   m.Text,
		}
		if display, ok := revealed[m.ID]; ok && e.CanDecode {
			e.Revealed = true
			e.Display = display
		}
		out = append(out, e)
	}
	return out
}

// UnseenDirected lists ids of directed messages addressed to the viewer that
// are not yet marked seen; callers fire mark-seen writes for these when the
// view is rendered.
func UnseenDirected(viewerID string, entries []Entry) []string {
	var ids []string
	for _, e := range entries {
		if e.ReceiverID == viewerID && !e.Seen {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
