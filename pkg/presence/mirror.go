package presence

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const onlineSetKey = "online_users"

// Mirror publishes online/offline transitions to a redis set so the
// presence endpoint (and anything else watching redis) can answer "who is
// online" without touching the registry. It is a read-side view only: the
// in-memory registry stays the source of truth for routing, and mirror
// failures never affect delivery.
type Mirror struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewMirror(addr string, logger *slog.Logger) *Mirror {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &Mirror{rdb: rdb, logger: logger}
}

func (m *Mirror) Close() error {
	return m.rdb.Close()
}

func (m *Mirror) SetOnline(ctx context.Context, userID int64) {
	if err := m.rdb.SAdd(ctx, onlineSetKey, userID).Err(); err != nil {
		m.logger.Warn("mirroring presence", "user_id", userID, "error", err)
	}
}

func (m *Mirror) SetOffline(ctx context.Context, userID int64) {
	if err := m.rdb.SRem(ctx, onlineSetKey, userID).Err(); err != nil {
		m.logger.Warn("mirroring absence", "user_id", userID, "error", err)
	}
}

func (m *Mirror) Online(ctx context.Context) ([]int64, error) {
	members, err := m.rdb.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
