package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type usageStore struct {
	client *redis.Client
}

func dailyUsageKey(userID, date string) string {
	return fmt.Sprintf("user_daily_usage:%s:%s", userID, date)
}

// IncrementDailyUsage atomically increments a day's counter and refreshes
// its expiry
func (s *usageStore) IncrementDailyUsage(ctx context.Context, userID, date string, minutes int64, ttl time.Duration) error {
	script := redis.NewScript(incrementDailyUsageScript)

	keys := []string{dailyUsageKey(userID, date)}
	args := []interface{}{minutes, int64(ttl.Seconds())}

	return script.Run(ctx, s.client, keys, args...).Err()
}

// GetDailyUsage returns the minute count for a day, zero when the key is
// absent
func (s *usageStore) GetDailyUsage(ctx context.Context, userID, date string) (int64, error) {
	minutes, err := s.client.Get(ctx, dailyUsageKey(userID, date)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return minutes, nil
}
