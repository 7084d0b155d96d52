package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/safechat/safechat/pkg/model"
)

// Memory is an in-process Store used by tests; snapshots are delivered
// synchronously on every mutation.
type Memory struct {
	mu        sync.Mutex
	messages  []model.Message
	users     map[string]model.User
	userOrder []string

	nextID int64
	lastTS time.Time

	nextSub  int
	msgSubs  map[int]messageSub
	userSubs map[int]userSub
}

type messageSub struct {
	onSnapshot func([]model.Message)
	onError    func(error)
}

type userSub struct {
	onSnapshot func([]model.User)
	onError    func(error)
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]model.User),
		msgSubs:  make(map[int]messageSub),
		userSubs: make(map[int]userSub),
	}
}

// now assigns a server timestamp, monotonically non-decreasing; ties are
// possible and preserved.
func (s *Memory) now() time.Time {
	t := time.Now().UTC()
	if t.Before(s.lastTS) {
		t = s.lastTS
	}
	s.lastTS = t
	return t
}

func (s *Memory) AppendMessage(_ context.Context, m model.Message) (string, error) {
	s.mu.Lock()
	s.nextID++
	m.ID = strconv.FormatInt(s.nextID, 10)
	m.Timestamp = s.now()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
	s.notifyMessages()
	return m.ID, nil
}

func (s *Memory) PutUser(_ context.Context, u model.User) error {
	s.mu.Lock()
	if _, ok := s.users[u.ID]; !ok {
		s.userOrder = append(s.userOrder, u.ID)
	}
	s.users[u.ID] = u
	s.mu.Unlock()
	s.notifyUsers()
	return nil
}

func (s *Memory) Write(_ context.Context, path string, value any) error {
	ref, err := ParsePath(path)
	if err != nil {
		return err
	}
	if ref.Record() || ref.Collection != Messages {
		return ErrBadPath
	}

	s.mu.Lock()
	idx := -1
	for i := range s.messages {
		if s.messages[i].ID == ref.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	m := &s.messages[idx]
	switch ref.Field {
	case FieldSeen:
		m.Seen = value == true
	case FieldSignaled:
		m.Signaled = value == true
	case FieldText:
		if value == nil {
			m.Text = ""
		} else {
			str, ok := value.(string)
			if !ok {
				s.mu.Unlock()
				return ErrBadPath
			}
			m.Text = str
		}
	case FieldDeletedFor:
		if m.DeletedFor == nil {
			m.DeletedFor = make(map[string]bool)
		}
		m.DeletedFor[ref.Key] = value == true
	}
	s.mu.Unlock()
	s.notifyMessages()
	return nil
}

func (s *Memory) ReadOnce(_ context.Context, path string) (any, error) {
	ref, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ref.Collection == Users {
		u, ok := s.users[ref.ID]
		if !ok {
			return nil, ErrNotFound
		}
		return u, nil
	}

	for i := range s.messages {
		if s.messages[i].ID != ref.ID {
			continue
		}
		m := s.messages[i]
		if ref.Record() {
			return m, nil
		}
		switch ref.Field {
		case FieldSeen:
			return m.Seen, nil
		case FieldSignaled:
			return m.Signaled, nil
		case FieldText:
			return m.Text, nil
		case FieldDeletedFor:
			return m.DeletedFor[ref.Key], nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) Messages(context.Context) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotMessages(), nil
}

func (s *Memory) Users(context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotUsers(), nil
}

func (s *Memory) SubscribeMessages(onSnapshot func([]model.Message), onError func(error)) Unsubscribe {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.msgSubs[id] = messageSub{onSnapshot: onSnapshot, onError: onError}
	snap := s.snapshotMessages()
	s.mu.Unlock()

	onSnapshot(snap)
	return func() {
		s.mu.Lock()
		delete(s.msgSubs, id)
		s.mu.Unlock()
	}
}

func (s *Memory) SubscribeUsers(onSnapshot func([]model.User), onError func(error)) Unsubscribe {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.userSubs[id] = userSub{onSnapshot: onSnapshot, onError: onError}
	snap := s.snapshotUsers()
	s.mu.Unlock()

	onSnapshot(snap)
	return func() {
		s.mu.Lock()
		delete(s.userSubs, id)
		s.mu.Unlock()
	}
}

// EmitFeedError delivers a change-feed failure to every subscriber, the way
// the Scylla store reports an unreachable changes topic. No snapshot
// accompanies it; listeners keep their last-good one.
func (s *Memory) EmitFeedError(err error) {
	s.mu.Lock()
	var fns []func(error)
	for _, sub := range s.msgSubs {
		if sub.onError != nil {
			fns = append(fns, sub.onError)
		}
	}
	for _, sub := range s.userSubs {
		if sub.onError != nil {
			fns = append(fns, sub.onError)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (s *Memory) Close() error { return nil }

func (s *Memory) snapshotMessages() []model.Message {
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	for i := range out {
		if len(s.messages[i].DeletedFor) > 0 {
			df := make(map[string]bool, len(s.messages[i].DeletedFor))
			for k, v := range s.messages[i].DeletedFor {
				df[k] = v
			}
			out[i].DeletedFor = df
		}
	}
	return out
}

func (s *Memory) snapshotUsers() []model.User {
	out := make([]model.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, s.users[id])
	}
	return out
}

func (s *Memory) notifyMessages() {
	s.mu.Lock()
	snap := s.snapshotMessages()
	subs := make([]func([]model.Message), 0, len(s.msgSubs))
	for _, sub := range s.msgSubs {
		subs = append(subs, sub.onSnapshot)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Memory) notifyUsers() {
	s.mu.Lock()
	snap := s.snapshotUsers()
	subs := make([]func([]model.User), 0, len(s.userSubs))
	for _, sub := range s.userSubs {
		subs = append(subs, sub.onSnapshot)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}
