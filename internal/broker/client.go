// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Renjie1997/movie-rec/internal/exchange"
)

var (
	// ErrNotConnected is returned by operations that need an open connection.
	ErrNotConnected = errors.New("broker not connected")

	// ErrAlreadySubscribed is returned when a second handler is registered
	// on the same connection.
	ErrAlreadySubscribed = errors.New("already subscribed")
)

// link is the set of resources opened by one Connect.
type link struct {
	publisher  message.Publisher
	subscriber message.Subscriber

	// nc and streams are nil for in-process transports.
	nc      *natsgo.Conn
	streams *StreamManager

	// owned links are closed on Disconnect.
	owned bool
}

type dialFunc func(ctx context.Context) (*link, error)

// Client implements exchange.Broker on top of Watermill.
type Client struct {
	dial    dialFunc
	breaker *gobreaker.CircuitBreaker[any]
	logger  watermill.LoggerAdapter

	mu        sync.Mutex
	link      *link
	subCancel context.CancelFunc
	subDone   chan struct{}
}

var _ exchange.Broker = (*Client)(nil)

// NewClient creates a NATS JetStream client. No connection is made until
// Connect.
func NewClient(cfg Config, logger watermill.LoggerAdapter) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	c := &Client{
		breaker: NewCircuitBreaker(cfg.Breaker),
		logger:  logger,
	}
	c.dial = func(ctx context.Context) (*link, error) {
		return dialNATS(ctx, cfg, logger)
	}
	return c, nil
}

// NewWatermillClient wraps an existing Watermill publisher and subscriber.
// Connect and Disconnect do not close them; their owner does.
func NewWatermillClient(pub message.Publisher, sub message.Subscriber, breaker CircuitBreakerConfig) *Client {
	return &Client{
		breaker: NewCircuitBreaker(breaker),
		logger:  watermill.NopLogger{},
		dial: func(context.Context) (*link, error) {
			return &link{publisher: pub, subscriber: sub}, nil
		},
	}
}

func natsOptions(cfg Config, logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name(cfg.ClientName),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}
}

// dialNATS opens the control connection, provisions the stream and builds
// the Watermill publisher and subscriber.
func dialNATS(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (*link, error) {
	opts := natsOptions(cfg, logger)

	nc, err := natsgo.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.URL, err)
	}

	streams, err := NewStreamManager(nc, StreamConfig{
		Name:            cfg.StreamName,
		Topic:           cfg.Topic,
		MaxAge:          cfg.MaxAge,
		DuplicateWindow: cfg.DuplicateWindow,
		MemoryStorage:   cfg.MemoryStorage,
	})
	if err != nil {
		nc.Close()
		return nil, err
	}
	if _, err := streams.EnsureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: opts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	// Ephemeral consumer delivering only messages published after the
	// subscription, so a reply from an earlier session is never replayed.
	// The consumer is bound by subject; an explicit BindStream without a
	// durable name collides with the subscriber's own empty binding.
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      opts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			AckAsync:      false,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.DeliverNew(),
				natsgo.AckExplicit(),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		nc.Close()
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &link{
		publisher:  pub,
		subscriber: sub,
		nc:         nc,
		streams:    streams,
		owned:      true,
	}, nil
}

// Connect opens a clean session. Calling it while connected is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.link != nil {
		return nil
	}
	l, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.link = l
	return nil
}

// Subscribe delivers every message of topic to h until Disconnect. Messages
// are handled one at a time and acknowledged after h returns.
func (c *Client) Subscribe(ctx context.Context, topic string, h exchange.Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.link == nil {
		return ErrNotConnected
	}
	if c.subCancel != nil {
		return ErrAlreadySubscribed
	}

	subCtx, cancel := context.WithCancel(ctx)
	messages, err := c.link.subscriber.Subscribe(subCtx, topic)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	done := make(chan struct{})
	c.subCancel = cancel
	c.subDone = done

	go func() {
		defer close(done)
		for msg := range messages {
			h(topic, msg.Payload)
			msg.Ack()
		}
	}()
	return nil
}

// Publish sends payload on topic through the circuit breaker. The message
// UUID is used as Nats-Msg-Id so broker-side retries are de-duplicated.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	l := c.link
	c.mu.Unlock()

	if l == nil {
		return ErrNotConnected
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if l.nc != nil {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, l.publisher.Publish(topic, msg)
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// ClearRetained erases the retained message of topic. On JetStream the
// subject is purged; other transports get an empty message, which peers
// ignore as it carries no tag.
func (c *Client) ClearRetained(ctx context.Context, topic string) error {
	c.mu.Lock()
	l := c.link
	c.mu.Unlock()

	if l == nil {
		return ErrNotConnected
	}
	if l.streams != nil {
		return l.streams.PurgeSubject(ctx, topic)
	}
	return c.Publish(ctx, topic, []byte{})
}

// Disconnect ends the subscription and closes owned connections. It waits
// for an in-flight handler to return unless ctx ends first.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	l := c.link
	cancel, done := c.subCancel, c.subDone
	c.link, c.subCancel, c.subDone = nil, nil, nil
	c.mu.Unlock()

	if l == nil {
		return nil
	}

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			c.logger.Info("Subscription still draining at disconnect", nil)
		}
	}

	if !l.owned {
		return nil
	}

	var errs []error
	if err := l.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}
	if err := l.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if l.nc != nil {
		l.nc.Close()
	}
	return errors.Join(errs...)
}

// IsConnected reports whether a session is open and, for NATS, whether the
// connection is currently up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.link == nil {
		return false
	}
	if c.link.nc != nil {
		return c.link.nc.IsConnected()
	}
	return true
}

// BreakerState returns the publish circuit breaker state.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}
