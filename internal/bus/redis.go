// Package bus relays process-wide events between server instances over Redis
// pub/sub. Room state is never shared; only events every connection should
// see travel on the bus.
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"nvivas/backend/tictactoe-rooms/internal/logger"
	"nvivas/backend/tictactoe-rooms/pkg/models"
)

// message is the wire form on the channel: an outbound envelope tagged with
// the publishing instance.
type message struct {
	Origin string `json:"origin"`
	models.Envelope
}

// Bus publishes and consumes events on one Redis channel.
type Bus struct {
	client  *redis.Client
	channel string
	origin  string
}

// Connect parses url, opens a client and checks it with PING.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

// New returns a bus with a fresh instance origin.
func New(client *redis.Client, channel string) *Bus {
	return &Bus{client: client, channel: channel, origin: uuid.NewString()}
}

// Origin identifies this instance on the channel.
func (b *Bus) Origin() string {
	return b.origin
}

// Publish sends ev to every other instance.
func (b *Bus) Publish(ctx context.Context, ev models.Outbound) error {
	data, err := encode(b.origin, ev)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing %s: %w", ev.Name(), err)
	}
	return nil
}

// Run subscribes to the channel and hands every event published by another
// instance to relay. It returns when ctx is done or the subscription closes.
func (b *Bus) Run(ctx context.Context, relay func(models.Outbound)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}
	logger.Info("Suscrito al canal de eventos", logger.Fields{"channel": b.channel, "origin": b.origin})

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle([]byte(msg.Payload), relay)
		}
	}
}

func (b *Bus) handle(payload []byte, relay func(models.Outbound)) {
	origin, ev, err := decode(payload)
	if err != nil {
		logger.Warn("Dropping malformed bus message", logger.Fields{"channel": b.channel, "error": err.Error()})
		return
	}
	if origin == b.origin {
		return
	}
	relay(ev)
}

func encode(origin string, ev models.Outbound) ([]byte, error) {
	frame, err := models.Encode(ev)
	if err != nil {
		return nil, err
	}
	var env models.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, err
	}
	return json.Marshal(message{Origin: origin, Envelope: env})
}

func decode(data []byte) (string, models.Outbound, error) {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		return "", nil, fmt.Errorf("decoding bus message: %w", err)
	}
	if m.Origin == "" {
		return "", nil, fmt.Errorf("bus message without origin")
	}
	frame, err := json.Marshal(m.Envelope)
	if err != nil {
		return "", nil, err
	}
	ev, err := models.DecodeOutbound(frame)
	if err != nil {
		return "", nil, err
	}
	return m.Origin, ev, nil
}
