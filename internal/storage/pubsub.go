package storage

import (
	"context"
	"encoding/json"

	"kiitcms/backend/internal/logger"
	"kiitcms/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// ChangesChannel carries every committed complaint change as JSON.
const ChangesChannel = "complaints:changes"

// publish announces a committed change. The write has already succeeded, so
// failures here are only logged.
func (s *Service) publish(ctx context.Context, ev models.ComplaintEvent) {
	s.invalidateCounts(ctx)

	if s.OnChange != nil {
		s.OnChange(ev)
	}
	if s.Redis == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Error().Err(err).Str("complaint_id", ev.ComplaintID).Msg("marshal change event")
		return
	}
	if err := s.Redis.Publish(ctx, ChangesChannel, payload).Err(); err != nil {
		logger.Warn().Err(err).Str("complaint_id", ev.ComplaintID).Msg("publish change event")
	}
}

// SubscribeChanges opens a subscription to the change channel. Nil when Redis is not configured.
func (s *Service) SubscribeChanges(ctx context.Context) *redis.PubSub {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Subscribe(ctx, ChangesChannel)
}

// DecodeChange parses one change channel payload.
func DecodeChange(payload string) (models.ComplaintEvent, error) {
	var ev models.ComplaintEvent
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}
