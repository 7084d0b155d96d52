package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/safechat/safechat/pkg/lifecycle"
	"github.com/safechat/safechat/pkg/model"
)

// Consumer drains viewer commands off the events topic and applies them to
// storage through the lifecycle rules. It is the only writer in the event
// pipeline; gateways never touch the database directly on the write path.
type Consumer struct {
	reader  *kafka.Reader
	manager *lifecycle.Manager
}

func NewConsumer(brokers []string, topic string, groupID string, manager *lifecycle.Manager) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: r, manager: manager}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Error reading message: %v. Retrying in 1s...", err)
			time.Sleep(1 * time.Second)
			continue
		}

		var ev model.Event
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			log.Printf("Failed to unmarshal event: %v", err)
			continue
		}

		if err := c.apply(ctx, ev); err != nil {
			// Rejected commands are dropped, not retried: permission and
			// not-found failures will not heal on replay.
			log.Printf("Failed to apply %s event: %v", ev.Type, err)
		}
	}
}

func (c *Consumer) apply(ctx context.Context, ev model.Event) error {
	switch ev.Type {
	case model.TypeMessage:
		if ev.Sender == nil {
			return errors.New("send event without sender")
		}
		id, err := c.manager.Send(ctx, *ev.Sender, ev.ReceiverID, ev.Content, ev.Grantees)
		if err != nil {
			return err
		}
		log.Printf("Message saved: %s", id)
		return nil

	case model.TypeSeen:
		return c.manager.MarkSeen(ctx, ev.ViewerID, ev.MessageID)

	case model.TypeHide:
		return c.manager.HideFor(ctx, ev.ViewerID, ev.MessageID)

	case model.TypeDelete:
		return c.manager.DeleteForAll(ctx, ev.ViewerID, ev.MessageID)

	case model.TypeSignal:
		return c.manager.Signal(ctx, ev.ViewerID, ev.MessageID)

	case model.TypeTyping, model.TypePresence:
		// Ephemeral, the gateway fans these out itself.
		return nil
	}
	log.Printf("Skipping unknown event type: %s", ev.Type)
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
