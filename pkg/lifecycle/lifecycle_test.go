package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/safechat/safechat/pkg/acl"
	"github.com/safechat/safechat/pkg/codec"
	"github.com/safechat/safechat/pkg/model"
	"github.com/safechat/safechat/pkg/router"
	"github.com/safechat/safechat/pkg/store"
)

var (
	alice = model.User{ID: "alice", DisplayName: "Alice"}
	bob   = model.User{ID: "bob", DisplayName: "Bob"}
)

func setup(t *testing.T) (*Manager, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	return NewManager(s), s
}

func mustGet(t *testing.T, s *store.Memory, id string) model.Message {
	t.Helper()
	v, err := s.ReadOnce(context.Background(), store.MessagePath(id))
	if err != nil {
		t.Fatalf("read %s: %v", id, err)
	}
	return v.(model.Message)
}

func TestSendRejectsEmptyText(t *testing.T) {
	g, _ := setup(t)
	if _, err := g.Send(context.Background(), alice, "", "   ", nil); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSendEncodesAndStores(t *testing.T) {
	g, s := setup(t)
	id, err := g.Send(context.Background(), alice, "", "hello", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	m := mustGet(t, s, id)
	if !m.IsEncrypted {
		t.Fatal("expected encrypted message")
	}
	if !codec.Detect(m.Text) {
		t.Fatalf("stored text %q not detectable as disguised", m.Text)
	}
	if got := codec.Decode(m.Text); got != "hello" {
		t.Fatalf("decode got %q, want hello", got)
	}
	if m.SenderID != "alice" || m.ReceiverID != "" {
		t.Fatalf("wrong addressing: %+v", m)
	}
}

func TestSendStoresDisguisedLookingTextVerbatim(t *testing.T) {
	g, s := setup(t)
	in := "By the way, nothing to see"
	id, err := g.Send(context.Background(), alice, "", in, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	m := mustGet(t, s, id)
	if m.IsEncrypted || m.Text != in {
		t.Fatalf("already-disguised text re-encoded: %+v", m)
	}
}

func TestSendCapturesGranteesAtCreation(t *testing.T) {
	g, s := setup(t)
	grantees := []string{"bob"}
	id, _ := g.Send(context.Background(), alice, "bob", "yes", grantees)
	grantees[0] = "mallory" // caller mutation must not leak in

	m := mustGet(t, s, id)
	if len(m.AllowedUsers) != 1 || m.AllowedUsers[0] != "bob" {
		t.Fatalf("allowed users = %v", m.AllowedUsers)
	}
}

func TestMarkSeenReceiverOnlyAndIdempotent(t *testing.T) {
	g, s := setup(t)
	ctx := context.Background()
	id, _ := g.Send(ctx, alice, "bob", "ping", nil)

	if err := g.MarkSeen(ctx, "carol", id); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-receiver mark-seen: %v", err)
	}
	if err := g.MarkSeen(ctx, "alice", id); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("sender mark-seen: %v", err)
	}

	if err := g.MarkSeen(ctx, "bob", id); err != nil {
		t.Fatalf("first mark-seen: %v", err)
	}
	if err := g.MarkSeen(ctx, "bob", id); err != nil {
		t.Fatalf("second mark-seen must be a no-op: %v", err)
	}
	if m := mustGet(t, s, id); !m.Seen {
		t.Fatal("seen not set")
	}
}

func TestMarkSeenRejectsBroadcast(t *testing.T) {
	g, _ := setup(t)
	ctx := context.Background()
	id, _ := g.Send(ctx, alice, "", "room note", nil)
	if err := g.MarkSeen(ctx, "bob", id); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("broadcast mark-seen: %v", err)
	}
}

func TestHideForIsPerViewer(t *testing.T) {
	g, s := setup(t)
	ctx := context.Background()
	id, _ := g.Send(ctx, alice, "", "hello room", nil)

	if err := g.HideFor(ctx, "bob", id); err != nil {
		t.Fatalf("hide: %v", err)
	}
	m := mustGet(t, s, id)
	if !m.HiddenFor("bob") || m.HiddenFor("alice") {
		t.Fatalf("hide not per-viewer: %+v", m.DeletedFor)
	}
	if m.Tombstone() {
		t.Fatal("hide-for-self must not clear text")
	}
}

func TestDeleteForAllSenderOnly(t *testing.T) {
	g, s := setup(t)
	ctx := context.Background()
	id, _ := g.Send(ctx, alice, "bob", "take this back", nil)

	if err := g.DeleteForAll(ctx, "bob", id); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-sender delete: %v", err)
	}
	if err := g.DeleteForAll(ctx, "alice", id); err != nil {
		t.Fatalf("sender delete: %v", err)
	}
	if m := mustGet(t, s, id); !m.Tombstone() {
		t.Fatalf("text not cleared: %+v", m)
	}
}

func TestDeleteForAllRemovesFromEveryView(t *testing.T) {
	g, s := setup(t)
	ctx := context.Background()
	id, _ := g.Send(ctx, alice, "bob", "gone soon", nil)
	if err := g.DeleteForAll(ctx, "alice", id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	msgs, _ := s.Messages(ctx)
	for _, conv := range []router.Context{
		router.DirectThread("alice", "bob"),
		router.DirectThread("bob", "alice"),
		router.Broadcast("alice"),
	} {
		for _, m := range router.VisibleIn(conv, msgs) {
			if m.ID == id {
				t.Fatalf("deleted message visible in %s", conv.ChannelID())
			}
		}
	}
}

func TestSignalOneWay(t *testing.T) {
	g, s := setup(t)
	ctx := context.Background()
	id, _ := g.Send(ctx, alice, "", "sketchy", nil)

	if err := g.Signal(ctx, "bob", id); err != nil {
		t.Fatalf("signal: %v", err)
	}
	if err := g.Signal(ctx, "carol", id); err != nil {
		t.Fatalf("repeat signal: %v", err)
	}
	if m := mustGet(t, s, id); !m.Signaled {
		t.Fatal("signaled not set")
	}
}

func TestLifecycleOpsOnMissingMessage(t *testing.T) {
	g, _ := setup(t)
	ctx := context.Background()
	if err := g.Signal(ctx, "bob", "404"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Scenario from the access-control design: sender broadcasts "hello" with no
// grantee restriction; any other viewer can decode it back exactly.
func TestScenarioBroadcastHelloDecodableByAll(t *testing.T) {
	g, s := setup(t)
	ctx := context.Background()
	id, _ := g.Send(ctx, alice, "", "hello", nil)

	m := mustGet(t, s, id)
	if !m.IsEncrypted {
		t.Fatal("expected isEncrypted")
	}
	if !strings.HasPrefix(m.Text, strings.ToUpper(m.Text[:1])) {
		t.Fatalf("stored text %q not capitalized", m.Text)
	}
	if !acl.CanDecode("victor", &m) {
		t.Fatal("unrestricted message must be decodable by anyone")
	}
	if got := codec.Decode(m.Text); got != "hello" {
		t.Fatalf("viewer decode got %q", got)
	}
}

// Scenario: directed "yes" granted only to the receiver; a third party may
// not decode, sender and receiver may.
func TestScenarioDirectedGrantList(t *testing.T) {
	g, s := setup(t)
	ctx := context.Background()
	id, _ := g.Send(ctx, alice, "bob", "yes", []string{"bob"})

	m := mustGet(t, s, id)
	if acl.CanDecode("trent", &m) {
		t.Fatal("third party must not decode")
	}
	if !acl.CanDecode(bob.ID, &m) || !acl.CanDecode(alice.ID, &m) {
		t.Fatal("sender and grantee must decode")
	}
}
