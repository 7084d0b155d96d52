package router

import (
	"testing"
	"time"

	"github.com/safechat/safechat/pkg/model"
)

func msg(id, sender, receiver, text string, ts int64) model.Message {
	return model.Message{
		ID:         id,
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       text,
		Timestamp:  time.UnixMilli(ts),
	}
}

func ids(msgs []model.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var snapshot = []model.Message{
	msg("1", "alice", "", "hi all", 100),
	msg("2", "alice", "bob", "hi bob", 200),
	msg("3", "bob", "alice", "hi alice", 300),
	msg("4", "carol", "", "hello room", 400),
	msg("5", "carol", "bob", "hi bob from carol", 500),
}

func TestBroadcastExcludesDirectedMessages(t *testing.T) {
	got := VisibleIn(Broadcast("alice"), snapshot)
	if !equal(ids(got), []string{"1", "4"}) {
		t.Fatalf("broadcast view = %v", ids(got))
	}
	for _, m := range got {
		if m.ReceiverID != "" {
			t.Fatalf("directed message %s leaked into broadcast", m.ID)
		}
	}
}

func TestDirectThreadIsSymmetric(t *testing.T) {
	ab := VisibleIn(DirectThread("alice", "bob"), snapshot)
	ba := VisibleIn(DirectThread("bob", "alice"), snapshot)
	if !equal(ids(ab), ids(ba)) {
		t.Fatalf("thread views differ: %v vs %v", ids(ab), ids(ba))
	}
	if !equal(ids(ab), []string{"2", "3"}) {
		t.Fatalf("thread view = %v", ids(ab))
	}
}

func TestThreadExcludesThirdParties(t *testing.T) {
	got := VisibleIn(DirectThread("alice", "bob"), snapshot)
	for _, m := range got {
		if m.SenderID == "carol" || m.ReceiverID == "carol" {
			t.Fatalf("carol's message %s leaked into alice/bob thread", m.ID)
		}
	}
}

func TestOrderingStableOnTimestampTies(t *testing.T) {
	tied := []model.Message{
		msg("b", "alice", "", "second arrival", 100),
		msg("a", "alice", "", "first arrival", 50),
		msg("c", "alice", "", "third arrival", 100),
	}
	got := VisibleIn(Broadcast("alice"), tied)
	if !equal(ids(got), []string{"a", "b", "c"}) {
		t.Fatalf("order = %v, want arrival order kept on ties", ids(got))
	}
}

func TestTombstonesExcludedEverywhere(t *testing.T) {
	msgs := append([]model.Message(nil), snapshot...)
	msgs[1].Text = "" // hard-deleted
	for _, ctx := range []Context{
		Broadcast("alice"),
		DirectThread("alice", "bob"),
		DirectThread("bob", "alice"),
	} {
		for _, m := range VisibleIn(ctx, msgs) {
			if m.ID == "2" {
				t.Fatalf("tombstone visible in %v", ctx.ChannelID())
			}
		}
	}
}

func TestHiddenForViewerOnly(t *testing.T) {
	msgs := append([]model.Message(nil), snapshot...)
	msgs[0].DeletedFor = map[string]bool{"bob": true}

	forBob := VisibleIn(Broadcast("bob"), msgs)
	for _, m := range forBob {
		if m.ID == "1" {
			t.Fatal("message hidden for bob still visible to bob")
		}
	}
	forAlice := VisibleIn(Broadcast("alice"), msgs)
	if !equal(ids(forAlice), []string{"1", "4"}) {
		t.Fatalf("alice's view changed by bob's hide: %v", ids(forAlice))
	}
}

func TestChannelIDCanonicalOrder(t *testing.T) {
	if DirectThread("bob", "alice").ChannelID() != "dm:alice:bob" {
		t.Fatal("channel id not canonical")
	}
	if DirectThread("alice", "bob").ChannelID() != "dm:alice:bob" {
		t.Fatal("channel id not canonical")
	}
	if Broadcast("x").ChannelID() != BroadcastChannel {
		t.Fatal("broadcast channel id wrong")
	}
}

func TestParseChannel(t *testing.T) {
	ctx, err := ParseChannel("dm:alice:bob", "bob")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ctx.Direct() || ctx.Viewer() != "bob" || ctx.Other() != "alice" {
		t.Fatalf("unexpected context %+v", ctx)
	}

	if _, err := ParseChannel("dm:alice:bob", "carol"); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := ParseChannel("dm:alice", "alice"); err != ErrBadChannel {
		t.Fatalf("expected ErrBadChannel, got %v", err)
	}
	ctx, err = ParseChannel("", "alice")
	if err != nil || ctx.Direct() {
		t.Fatalf("empty channel should be broadcast, got %+v err %v", ctx, err)
	}
}
