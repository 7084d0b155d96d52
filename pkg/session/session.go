// Package session holds per-viewer transient state: the grantee selection a
// sender carries into their next messages, and which messages a connection
// currently shows in decoded form. None of this is part of any message
// record until send time, and the revealed set never leaves the process.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Grantees is the current decrypt-access selection of one sender. Toggling a
// user in and out mirrors the selector of the original client; the selection
// is captured into a message's allowed list only when the message is sent.
type Grantees interface {
	Toggle(ctx context.Context, senderID, granteeID string) (selected bool, err error)
	List(ctx context.Context, senderID string) ([]string, error)
	Clear(ctx context.Context, senderID string) error
}

// selectionTTL bounds how long an idle sender's selection survives.
const selectionTTL = 24 * time.Hour

// RedisGrantees keeps selections in redis sets so a sender's selection
// follows them across gateway connections.
type RedisGrantees struct {
	rdb *redis.Client
}

func NewRedisGrantees(rdb *redis.Client) *RedisGrantees {
	return &RedisGrantees{rdb: rdb}
}

func key(senderID string) string { return "session:" + senderID + ":grantees" }

func (g *RedisGrantees) Toggle(ctx context.Context, senderID, granteeID string) (bool, error) {
	k := key(senderID)
	member, err := g.rdb.SIsMember(ctx, k, granteeID).Result()
	if err != nil {
		return false, err
	}
	if member {
		if err := g.rdb.SRem(ctx, k, granteeID).Err(); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := g.rdb.SAdd(ctx, k, granteeID).Err(); err != nil {
		return false, err
	}
	g.rdb.Expire(ctx, k, selectionTTL)
	return true, nil
}

func (g *RedisGrantees) List(ctx context.Context, senderID string) ([]string, error) {
	ids, err := g.rdb.SMembers(ctx, key(senderID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (g *RedisGrantees) Clear(ctx context.Context, senderID string) error {
	return g.rdb.Del(ctx, key(senderID)).Err()
}

// MemoryGrantees is the in-process variant used by tests.
type MemoryGrantees struct {
	mu   sync.Mutex
	sets map[string]map[string]bool
}

func NewMemoryGrantees() *MemoryGrantees {
	return &MemoryGrantees{sets: make(map[string]map[string]bool)}
}

func (g *MemoryGrantees) Toggle(_ context.Context, senderID, granteeID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set := g.sets[senderID]
	if set == nil {
		set = make(map[string]bool)
		g.sets[senderID] = set
	}
	if set[granteeID] {
		delete(set, granteeID)
		return false, nil
	}
	set[granteeID] = true
	return true, nil
}

func (g *MemoryGrantees) List(_ context.Context, senderID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var ids []string
	for id := range g.sets[senderID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (g *MemoryGrantees) Clear(_ context.Context, senderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sets, senderID)
	return nil
}

// Revealed tracks which messages one connection currently displays in
// decoded form, keyed to the display text captured when the viewer toggled
// them open. Capturing at toggle time keeps the shown form stable across
// snapshot pushes even where the transform is not deterministic. Not safe
// for concurrent use; each connection owns its own.
type Revealed struct {
	display map[string]string
}

func NewRevealed() *Revealed {
	return &Revealed{display: make(map[string]string)}
}

// Reveal records the display form for a message. Revealing an already
// revealed message keeps the form captured first.
func (r *Revealed) Reveal(messageID, display string) {
	if _, ok := r.display[messageID]; !ok {
		r.display[messageID] = display
	}
}

// Shown reports whether the message is currently revealed.
func (r *Revealed) Shown(messageID string) bool {
	_, ok := r.display[messageID]
	return ok
}

func (r *Revealed) Conceal(messageID string) { delete(r.display, messageID) }

// Set exposes the id-to-display map for view building.
func (r *Revealed) Set() map[string]string { return r.display }
