// Package store defines the persistence collaborator the core writes through
// and subscribes to. Records live in flat collections keyed by opaque ids;
// individual fields are addressed by slash paths such as "messages/42/seen".
// The store assigns ids and timestamps on append. Subscriptions deliver the
// full current snapshot of a collection on every change.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/safechat/safechat/pkg/model"
)

const (
	Messages = "messages"
	Users    = "users"
)

// Field names addressable through Write.
const (
	FieldSeen       = "seen"
	FieldSignaled   = "signaled"
	FieldText       = "text"
	FieldDeletedFor = "deleted_for"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrBadPath  = errors.New("malformed store path")
)

// Unsubscribe releases a subscription. Safe to call more than once.
type Unsubscribe func()

// Store is the persistence collaborator. Implementations must tolerate
// concurrent writers: every snapshot a subscriber receives is derived state,
// never ground truth to cache across updates.
type Store interface {
	// AppendMessage stores a new message, assigning its id and timestamp.
	AppendMessage(ctx context.Context, m model.Message) (string, error)
	// PutUser upserts an identity profile record.
	PutUser(ctx context.Context, u model.User) error
	// Write sets a single field addressed by path. A nil value nulls the
	// field (used to clear text on delete-for-everyone).
	Write(ctx context.Context, path string, value any) error
	// ReadOnce resolves a record path ("messages/<id>") to a model.Message
	// or model.User, or a field path to the field's current value.
	ReadOnce(ctx context.Context, path string) (any, error)

	Messages(ctx context.Context) ([]model.Message, error)
	Users(ctx context.Context) ([]model.User, error)

	// SubscribeMessages registers a snapshot listener. The current snapshot
	// is delivered once on registration and again after every change. Feed
	// failures go to onError; the listener keeps its last-good snapshot.
	SubscribeMessages(onSnapshot func([]model.Message), onError func(error)) Unsubscribe
	SubscribeUsers(onSnapshot func([]model.User), onError func(error)) Unsubscribe

	Close() error
}

// FieldRef is a parsed Write/ReadOnce path.
type FieldRef struct {
	Collection string
	ID         string
	Field      string
	Key        string // map key, only for deleted_for entries
}

// Record reports whether the path addresses a whole record rather than a
// single field.
func (r FieldRef) Record() bool { return r.Field == "" }

// ParsePath splits a slash path into its components. Accepted shapes:
//
//	<collection>/<id>
//	messages/<id>/seen|signaled|text
//	messages/<id>/deleted_for/<viewer>
func ParsePath(path string) (FieldRef, error) {
	parts := strings.Split(path, "/")
	for _, p := range parts {
		if p == "" {
			return FieldRef{}, fmt.Errorf("%w: %q", ErrBadPath, path)
		}
	}
	switch len(parts) {
	case 2:
		if parts[0] != Messages && parts[0] != Users {
			return FieldRef{}, fmt.Errorf("%w: unknown collection in %q", ErrBadPath, path)
		}
		return FieldRef{Collection: parts[0], ID: parts[1]}, nil
	case 3:
		if parts[0] != Messages {
			return FieldRef{}, fmt.Errorf("%w: %q", ErrBadPath, path)
		}
		switch parts[2] {
		case FieldSeen, FieldSignaled, FieldText:
			return FieldRef{Collection: parts[0], ID: parts[1], Field: parts[2]}, nil
		}
		return FieldRef{}, fmt.Errorf("%w: unknown field in %q", ErrBadPath, path)
	case 4:
		if parts[0] != Messages || parts[2] != FieldDeletedFor {
			return FieldRef{}, fmt.Errorf("%w: %q", ErrBadPath, path)
		}
		return FieldRef{Collection: parts[0], ID: parts[1], Field: parts[2], Key: parts[3]}, nil
	}
	return FieldRef{}, fmt.Errorf("%w: %q", ErrBadPath, path)
}

// Path helpers used by the lifecycle layer.

func MessagePath(id string) string         { return Messages + "/" + id }
func SeenPath(id string) string            { return Messages + "/" + id + "/" + FieldSeen }
func SignaledPath(id string) string        { return Messages + "/" + id + "/" + FieldSignaled }
func TextPath(id string) string            { return Messages + "/" + id + "/" + FieldText }
func HiddenPath(id, viewer string) string  { return Messages + "/" + id + "/" + FieldDeletedFor + "/" + viewer }
