package feedhub

import (
	"context"

	"kiitcms/backend/internal/logger"
	"kiitcms/backend/internal/storage"

	"github.com/redis/go-redis/v9"
)

// ChangeSource opens the cross-instance change subscription.
type ChangeSource interface {
	SubscribeChanges(ctx context.Context) *redis.PubSub
}

// ListenRedis forwards changes published by any instance to this manager's
// clients. It returns false when there is no Redis to listen on, in which
// case the caller should feed Broadcast from the local store instead.
func (m *Manager) ListenRedis(ctx context.Context, src ChangeSource) bool {
	sub := src.SubscribeChanges(ctx)
	if sub == nil {
		return false
	}
	go func() {
		defer sub.Close()
		m.consume(ctx, sub.Channel())
	}()
	logger.Info().Str("channel", storage.ChangesChannel).Msg("listening for complaint changes")
	return true
}

func (m *Manager) consume(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ev, err := storage.DecodeChange(msg.Payload)
			if err != nil {
				logger.Warn().Err(err).Msg("undecodable change payload")
				continue
			}
			m.Broadcast(ev)
		}
	}
}
