// Package fanout bridges the dispatcher and the per-instance registries over
// a Redis pub/sub channel, so a notification published by whichever instance
// ran the scan reaches connections bound on every instance.
package fanout

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"notification-service/domain"
	"notification-service/internal/consts"
	"notification-service/registry"
)

// Publisher publishes notification envelopes to the shared channel.
type Publisher struct {
	rc      *redis.Client
	channel string
}

func NewPublisher(rc *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = consts.DefaultNotificationsChannel
	}
	return &Publisher{rc: rc, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, userID string, n domain.Notification) error {
	data, err := sonic.Marshal(domain.Envelope{UserID: userID, Kind: n.Kind, Task: n.Task})
	if err != nil {
		return err
	}
	return p.rc.Publish(ctx, p.channel, data).Err()
}

// Subscribe consumes notification envelopes from the shared channel and
// feeds them into the local registry. It runs until ctx is cancelled;
// malformed payloads are logged and skipped.
func Subscribe(ctx context.Context, logger *log.Logger, rc *redis.Client, channel string, reg *registry.Registry) {
	if channel == "" {
		channel = consts.DefaultNotificationsChannel
	}
	sub := rc.Subscribe(ctx, channel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				logger.Error("notification subscription channel closed")
				return
			}
			var env domain.Envelope
			if err := sonic.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Errorf("unable to parse notification envelope: %v", err)
				continue
			}
			reg.Publish(env.UserID, domain.Notification{Kind: env.Kind, Task: env.Task})
		}
	}
}
