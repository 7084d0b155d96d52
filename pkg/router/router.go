// Package router partitions the shared message snapshot into per-conversation
// views: one broadcast room plus pairwise direct threads. It is a pure filter
// over a snapshot and holds no state; callers re-run it on every feed update.
package router

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/safechat/safechat/pkg/model"
)

// BroadcastChannel is the shared room every identity can see.
const BroadcastChannel = "general"

const dmPrefix = "dm:"

var (
	ErrBadChannel     = errors.New("invalid channel id")
	ErrNotParticipant = errors.New("viewer is not a participant of this thread")
)

// Context identifies a conversation from one viewer's side.
type Context struct {
	viewer string
	other  string
	direct bool
}

func Broadcast(viewerID string) Context {
	return Context{viewer: viewerID}
}

func DirectThread(selfID, otherID string) Context {
	return Context{viewer: selfID, other: otherID, direct: true}
}

func (c Context) Viewer() string { return c.viewer }
func (c Context) Other() string  { return c.other }
func (c Context) Direct() bool   { return c.direct }

// ChannelID renders the canonical channel name: "general", or "dm:<a>:<b>"
// with the pair sorted so both sides agree on the name.
func (c Context) ChannelID() string {
	if !c.direct {
		return BroadcastChannel
	}
	a, b := c.viewer, c.other
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%s%s:%s", dmPrefix, a, b)
}

// ParseChannel resolves a channel id from the wire into a Context for
// viewerID. Direct channels are only resolvable by their two participants.
func ParseChannel(channelID, viewerID string) (Context, error) {
	if channelID == "" || channelID == BroadcastChannel {
		return Broadcast(viewerID), nil
	}
	if !strings.HasPrefix(channelID, dmPrefix) {
		return Context{}, ErrBadChannel
	}
	parts := strings.Split(channelID, ":")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return Context{}, ErrBadChannel
	}
	switch viewerID {
	case parts[1]:
		return DirectThread(viewerID, parts[2]), nil
	case parts[2]:
		return DirectThread(viewerID, parts[1]), nil
	}
	return Context{}, ErrNotParticipant
}

// Includes applies the receiver rule only: broadcast messages have no
// receiver, thread messages belong to exactly the pair, in either direction.
func (c Context) Includes(m *model.Message) bool {
	if !c.direct {
		return m.Broadcast()
	}
	return (m.SenderID == c.viewer && m.ReceiverID == c.other) ||
		(m.SenderID == c.other && m.ReceiverID == c.viewer)
}

// VisibleIn filters msgs down to what the context's viewer should see:
// messages of this conversation, minus hard-deleted tombstones and messages
// the viewer hid for themselves. Output is ordered by ascending timestamp;
// equal timestamps keep their arrival order.
func VisibleIn(ctx Context, msgs []model.Message) []model.Message {
	var out []model.Message
	for i := range msgs {
		m := &msgs[i]
		if m.Tombstone() || m.HiddenFor(ctx.viewer) {
			continue
		}
		if ctx.Includes(m) {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
