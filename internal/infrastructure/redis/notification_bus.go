package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
)

// DefaultChannel is the pub/sub channel notifications travel on
const DefaultChannel = "texflow:notifications"

// Config holds the Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// NewClient connects to Redis and verifies it with a ping
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NotificationBus implements domain.ChangeNotifier over Redis pub/sub so every
// API instance relays notifications to its own stream clients
type NotificationBus struct {
	rdb     *goredis.Client
	channel string
	logger  *logging.Logger
}

// NewNotificationBus creates a new NotificationBus
func NewNotificationBus(rdb *goredis.Client, channel string, logger *logging.Logger) *NotificationBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &NotificationBus{
		rdb:     rdb,
		channel: channel,
		logger:  logger.WithComponent("notification-bus"),
	}
}

// Notify publishes n to every instance
func (b *NotificationBus) Notify(ctx context.Context, n domain.Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// StartForwarder subscribes to the channel and calls onMsg for each
// notification until ctx ends
func (b *NotificationBus) StartForwarder(ctx context.Context, onMsg func(domain.Notification)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				n, err := DecodeNotification(m.Payload)
				if err != nil {
					b.logger.WithError(err).Warn("Bad notification payload")
					continue
				}
				onMsg(n)
			}
		}
	}()

	return nil
}

// DecodeNotification parses a published payload
func DecodeNotification(payload string) (domain.Notification, error) {
	var n domain.Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return domain.Notification{}, fmt.Errorf("failed to decode notification: %w", err)
	}
	if n.Type == "" {
		return domain.Notification{}, fmt.Errorf("notification without type")
	}
	return n, nil
}
