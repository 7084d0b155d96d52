package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/safechat/safechat/pkg/model"
	"github.com/safechat/safechat/pkg/snowflake"
)

// messagesBucket is the single partition holding the message collection; the
// snowflake clustering key keeps it in creation order.
const messagesBucket = "messages"

// Scylla is the production Store: records in ScyllaDB, change propagation
// over a Kafka topic. Every successful write publishes an invalidation;
// subscribers reload the full collection on each one, so local views are
// always derived from storage, never from the event payload.
type Scylla struct {
	session  *gocql.Session
	node     *snowflake.Node
	producer *kafka.Writer
	brokers  []string
	topic    string
}

type changeEvent struct {
	Collection string `json:"collection"`
}

func NewScylla(hosts []string, keyspace string, brokers []string, changesTopic string, nodeID int64) (*Scylla, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second

	// Retry policy
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	log.Println("Connected to ScyllaDB cluster")

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		session.Close()
		return nil, err
	}

	producer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    changesTopic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Scylla{
		session:  session,
		node:     node,
		producer: producer,
		brokers:  brokers,
		topic:    changesTopic,
	}, nil
}

func (s *Scylla) AppendMessage(ctx context.Context, m model.Message) (string, error) {
	id := s.node.Generate()
	m.ID = strconv.FormatInt(id, 10)
	m.Timestamp = time.Now().UTC()

	query := `INSERT INTO messages (bucket, id, sender_id, sender_name, receiver_id, content, is_encrypted, allowed_users, seen, deleted_for, signaled, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	err := s.session.Query(query,
		messagesBucket, id, m.SenderID, m.SenderName, m.ReceiverID, m.Text,
		m.IsEncrypted, m.AllowedUsers, m.Seen, m.DeletedFor, m.Signaled, m.Timestamp,
	).WithContext(ctx).Exec()
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}

	s.publishChange(Messages)
	return m.ID, nil
}

func (s *Scylla) PutUser(ctx context.Context, u model.User) error {
	err := s.session.Query(
		`INSERT INTO users (id, display_name, email) VALUES (?, ?, ?)`,
		u.ID, u.DisplayName, u.Email,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	s.publishChange(Users)
	return nil
}

func (s *Scylla) Write(ctx context.Context, path string, value any) error {
	ref, err := ParsePath(path)
	if err != nil {
		return err
	}
	if ref.Record() || ref.Collection != Messages {
		return ErrBadPath
	}
	id, err := strconv.ParseInt(ref.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad id %q", ErrBadPath, ref.ID)
	}

	// Scylla updates are upserts; check existence first so writes against
	// unknown ids fail the same way as on other stores.
	if _, err := s.loadMessage(ctx, id); err != nil {
		return err
	}

	var cql string
	args := []any{}
	switch ref.Field {
	case FieldSeen:
		cql = `UPDATE messages SET seen = ? WHERE bucket = ? AND id = ?`
		args = append(args, value == true, messagesBucket, id)
	case FieldSignaled:
		cql = `UPDATE messages SET signaled = ? WHERE bucket = ? AND id = ?`
		args = append(args, value == true, messagesBucket, id)
	case FieldText:
		if value == nil {
			cql = `UPDATE messages SET content = null WHERE bucket = ? AND id = ?`
			args = append(args, messagesBucket, id)
		} else {
			str, ok := value.(string)
			if !ok {
				return ErrBadPath
			}
			cql = `UPDATE messages SET content = ? WHERE bucket = ? AND id = ?`
			args = append(args, str, messagesBucket, id)
		}
	case FieldDeletedFor:
		cql = `UPDATE messages SET deleted_for[?] = ? WHERE bucket = ? AND id = ?`
		args = append(args, ref.Key, value == true, messagesBucket, id)
	}

	if err := s.session.Query(cql, args...).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.publishChange(Messages)
	return nil
}

func (s *Scylla) ReadOnce(ctx context.Context, path string) (any, error) {
	ref, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	if ref.Collection == Users {
		var u model.User
		err := s.session.Query(
			`SELECT id, display_name, email FROM users WHERE id = ?`, ref.ID,
		).WithContext(ctx).Scan(&u.ID, &u.DisplayName, &u.Email)
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("read user: %w", err)
		}
		return u, nil
	}

	id, err := strconv.ParseInt(ref.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad id %q", ErrBadPath, ref.ID)
	}
	m, err := s.loadMessage(ctx, id)
	if err != nil {
		return nil, err
	}
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
	return nil, ErrBadPath
}

func (s *Scylla) Messages(ctx context.Context) ([]model.Message, error) {
	iter := s.session.Query(
		`SELECT id, sender_id, sender_name, receiver_id, content, is_encrypted, allowed_users, seen, deleted_for, signaled, ts
		 FROM messages WHERE bucket = ?`, messagesBucket,
	).WithContext(ctx).Iter()

	var out []model.Message
	var (
		id      int64
		m       model.Message
		allowed []string
		deleted map[string]bool
	)
	for iter.Scan(&id, &m.SenderID, &m.SenderName, &m.ReceiverID, &m.Text,
		&m.IsEncrypted, &allowed, &m.Seen, &deleted, &m.Signaled, &m.Timestamp) {
		m.ID = strconv.FormatInt(id, 10)
		m.AllowedUsers = allowed
		m.DeletedFor = deleted
		out = append(out, m)
		m = model.Message{}
		allowed = nil
		deleted = nil
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	return out, nil
}

func (s *Scylla) Users(ctx context.Context) ([]model.User, error) {
	iter := s.session.Query(`SELECT id, display_name, email FROM users`).WithContext(ctx).Iter()

	var out []model.User
	var u model.User
	for iter.Scan(&u.ID, &u.DisplayName, &u.Email) {
		out = append(out, u)
		u = model.User{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return out, nil
}

func (s *Scylla) SubscribeMessages(onSnapshot func([]model.Message), onError func(error)) Unsubscribe {
	return s.subscribe(Messages, func(ctx context.Context) error {
		msgs, err := s.Messages(ctx)
		if err != nil {
			return err
		}
		onSnapshot(msgs)
		return nil
	}, onError)
}

func (s *Scylla) SubscribeUsers(onSnapshot func([]model.User), onError func(error)) Unsubscribe {
	return s.subscribe(Users, func(ctx context.Context) error {
		users, err := s.Users(ctx)
		if err != nil {
			return err
		}
		onSnapshot(users)
		return nil
	}, onError)
}

// subscribe reloads and delivers the collection once up front, then again on
// every matching change event. Each subscriber gets its own consumer group
// so changes fan out to all of them. Errors are reported and the last-good
// snapshot stands; the loop keeps trying until unsubscribed.
func (s *Scylla) subscribe(collection string, reload func(context.Context) error, onError func(error)) Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     s.brokers,
		Topic:       s.topic,
		GroupID:     "feed-" + uuid.NewString(),
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})

	report := func(err error) {
		if onError != nil {
			onError(err)
		} else {
			log.Printf("feed error on %s: %v", collection, err)
		}
	}

	go func() {
		defer reader.Close()

		if err := reload(ctx); err != nil && ctx.Err() == nil {
			report(err)
		}

		for {
			msg, err := reader.ReadMessage(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				report(err)
				time.Sleep(time.Second)
				continue
			}

			var ev changeEvent
			if err := json.Unmarshal(msg.Value, &ev); err != nil {
				log.Printf("malformed change event: %v", err)
				continue
			}
			if ev.Collection != collection {
				continue
			}
			if err := reload(ctx); err != nil && ctx.Err() == nil {
				report(err)
			}
		}
	}()

	return func() { cancel() }
}

func (s *Scylla) Close() error {
	s.session.Close()
	return s.producer.Close()
}

func (s *Scylla) loadMessage(ctx context.Context, id int64) (model.Message, error) {
	var (
		m       model.Message
		allowed []string
		deleted map[string]bool
	)
	err := s.session.Query(
		`SELECT sender_id, sender_name, receiver_id, content, is_encrypted, allowed_users, seen, deleted_for, signaled, ts
		 FROM messages WHERE bucket = ? AND id = ?`, messagesBucket, id,
	).WithContext(ctx).Scan(&m.SenderID, &m.SenderName, &m.ReceiverID, &m.Text,
		&m.IsEncrypted, &allowed, &m.Seen, &deleted, &m.Signaled, &m.Timestamp)
	if err == gocql.ErrNotFound {
		return model.Message{}, ErrNotFound
	}
	if err != nil {
		return model.Message{}, fmt.Errorf("read message: %w", err)
	}
	m.ID = strconv.FormatInt(id, 10)
	m.AllowedUsers = allowed
	m.DeletedFor = deleted
	return m, nil
}

func (s *Scylla) publishChange(collection string) {
	payload, _ := json.Marshal(changeEvent{Collection: collection})
	err := s.producer.WriteMessages(context.Background(), kafka.Message{
		Value: payload,
		Time:  time.Now(),
	})
	if err != nil {
		log.Printf("Failed to publish change event for %s: %v", collection, err)
	}
}
