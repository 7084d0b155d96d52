package store

import (
	"context"
	"errors"
	"testing"

	"github.com/safechat/safechat/pkg/model"
)

func TestParsePath(t *testing.T) {
	cases := []struct {
		path string
		want FieldRef
		ok   bool
	}{
		{"messages/42", FieldRef{Collection: "messages", ID: "42"}, true},
		{"users/alice", FieldRef{Collection: "users", ID: "alice"}, true},
		{"messages/42/seen", FieldRef{Collection: "messages", ID: "42", Field: "seen"}, true},
		{"messages/42/text", FieldRef{Collection: "messages", ID: "42", Field: "text"}, true},
		{"messages/42/deleted_for/bob", FieldRef{Collection: "messages", ID: "42", Field: "deleted_for", Key: "bob"}, true},
		{"messages", FieldRef{}, false},
		{"messages/42/bogus", FieldRef{}, false},
		{"rooms/42", FieldRef{}, false},
		{"messages//seen", FieldRef{}, false},
	}
	for _, c := range cases {
		got, err := ParsePath(c.path)
		if c.ok && (err != nil || got != c.want) {
			t.Fatalf("ParsePath(%q) = %+v, %v; want %+v", c.path, got, err, c.want)
		}
		if !c.ok && !errors.Is(err, ErrBadPath) {
			t.Fatalf("ParsePath(%q) expected ErrBadPath, got %v", c.path, err)
		}
	}
}

func TestMemoryAppendAssignsIDAndTimestamp(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	id1, err := s.AppendMessage(ctx, model.Message{Text: "one", SenderID: "a"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	id2, err := s.AppendMessage(ctx, model.Message{Text: "two", SenderID: "a"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id1 == "" || id1 == id2 {
		t.Fatalf("ids not unique: %q %q", id1, id2)
	}

	msgs, _ := s.Messages(ctx)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Timestamp.Before(msgs[0].Timestamp) {
		t.Fatal("timestamps went backwards")
	}
}

func TestMemoryWritePaths(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	id, _ := s.AppendMessage(ctx, model.Message{Text: "hello", SenderID: "a", ReceiverID: "b"})

	if err := s.Write(ctx, SeenPath(id), true); err != nil {
		t.Fatalf("seen: %v", err)
	}
	if err := s.Write(ctx, SignaledPath(id), true); err != nil {
		t.Fatalf("signaled: %v", err)
	}
	if err := s.Write(ctx, HiddenPath(id, "b"), true); err != nil {
		t.Fatalf("hidden: %v", err)
	}

	v, err := s.ReadOnce(ctx, MessagePath(id))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	m := v.(model.Message)
	if !m.Seen || !m.Signaled || !m.DeletedFor["b"] {
		t.Fatalf("writes not applied: %+v", m)
	}

	if err := s.Write(ctx, TextPath(id), nil); err != nil {
		t.Fatalf("null text: %v", err)
	}
	v, _ = s.ReadOnce(ctx, MessagePath(id))
	if m := v.(model.Message); !m.Tombstone() {
		t.Fatalf("expected tombstone, got %+v", m)
	}
}

func TestMemoryWriteUnknownID(t *testing.T) {
	s := NewMemory()
	if err := s.Write(context.Background(), SeenPath("999"), true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemorySubscribeDeliversSnapshots(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var got [][]model.Message
	unsub := s.SubscribeMessages(func(msgs []model.Message) {
		got = append(got, msgs)
	}, nil)

	if len(got) != 1 || len(got[0]) != 0 {
		t.Fatalf("expected immediate empty snapshot, got %v", got)
	}

	s.AppendMessage(ctx, model.Message{Text: "hi", SenderID: "a"})
	if len(got) != 2 || len(got[1]) != 1 {
		t.Fatalf("expected snapshot after append, got %d deliveries", len(got))
	}

	unsub()
	s.AppendMessage(ctx, model.Message{Text: "again", SenderID: "a"})
	if len(got) != 2 {
		t.Fatal("listener fired after unsubscribe")
	}
}

func TestMemoryFeedErrorKeepsLastSnapshot(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var snaps [][]model.Message
	var feedErrs []error
	unsub := s.SubscribeMessages(
		func(msgs []model.Message) { snaps = append(snaps, msgs) },
		func(err error) { feedErrs = append(feedErrs, err) },
	)
	defer unsub()

	s.AppendMessage(ctx, model.Message{Text: "hi", SenderID: "a"})
	delivered := len(snaps)

	s.EmitFeedError(errors.New("changes topic unreachable"))
	if len(feedErrs) != 1 {
		t.Fatalf("expected 1 feed error, got %d", len(feedErrs))
	}
	if len(snaps) != delivered {
		t.Fatal("a feed error must not deliver a snapshot")
	}
	if last := snaps[len(snaps)-1]; len(last) != 1 || last[0].Text != "hi" {
		t.Fatalf("last-good snapshot lost: %v", last)
	}
}

func TestMemorySnapshotIsACopy(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	id, _ := s.AppendMessage(ctx, model.Message{Text: "hi", SenderID: "a"})

	msgs, _ := s.Messages(ctx)
	msgs[0].Text = "tampered"
	if msgs[0].DeletedFor == nil {
		msgs[0].DeletedFor = map[string]bool{}
	}
	msgs[0].DeletedFor["x"] = true

	v, _ := s.ReadOnce(ctx, MessagePath(id))
	if m := v.(model.Message); m.Text != "hi" || m.DeletedFor["x"] {
		t.Fatalf("snapshot aliases store state: %+v", m)
	}
}
