package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const channelPrefix = "docstore"

// RedisFeed publishes document change notifications over Redis pub/sub.
// A write to path p is announced on the document channel of p and on the
// collection channel of p's parent.
type RedisFeed struct {
	client     *redis.Client
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewRedisFeed connects to Redis and verifies the connection
func NewRedisFeed(ctx context.Context, addr, password string, db int) (*RedisFeed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisFeed{
		client:     client,
		retryDelay: time.Second,
		log:        logger.Component("change_feed"),
	}, nil
}

// DocumentChannel returns the channel announcing writes to one document
func (f *RedisFeed) DocumentChannel(path string) string {
	return fmt.Sprintf("%s:doc:%s", channelPrefix, path)
}

// CollectionChannel returns the channel announcing writes to any direct child of a collection
func (f *RedisFeed) CollectionChannel(collection string) string {
	return fmt.Sprintf("%s:col:%s", channelPrefix, collection)
}

// Publish announces a write to path
func (f *RedisFeed) Publish(ctx context.Context, path string) error {
	pipe := f.client.Pipeline()
	pipe.Publish(ctx, f.DocumentChannel(path), path)
	pipe.Publish(ctx, f.CollectionChannel(domain.CollectionOf(path)), path)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Watch calls notify for every message on channel until ctx ends or the
// returned Unsubscribe is called. After a receive error it reports
// ErrStoreUnavailable, waits, and notifies once so the subscriber resyncs.
func (f *RedisFeed) Watch(ctx context.Context, channel string, notify func(), onError func(error)) (domain.Unsubscribe, error) {
	pubsub := f.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)

	go func() {
		for {
			msg, err := pubsub.ReceiveMessage(watchCtx)
			if err != nil {
				if watchCtx.Err() != nil {
					return
				}
				f.log.Warn().Err(err).Str("channel", channel).Msg("Change feed receive failed")
				onError(fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err))

				select {
				case <-watchCtx.Done():
					return
				case <-time.After(f.retryDelay):
				}
				notify()
				continue
			}

			f.log.Debug().Str("channel", msg.Channel).Str("path", msg.Payload).Msg("Document change received")
			notify()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			pubsub.Close()
		})
	}, nil
}

// Close closes the Redis client
func (f *RedisFeed) Close() error {
	return f.client.Close()
}
