package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// SlotKey names the advisory lock for one teacher-slot pair. Booking
// submission locks every requested slot under this key so two students
// cannot create lessons for the same time concurrently.
func SlotKey(teacherID string, start time.Time) string {
	return fmt.Sprintf("teacher:%s:slot:%s", teacherID, start.UTC().Format(time.RFC3339))
}

// LockAll acquires every key or none. On the first key that cannot be
// taken, the already acquired ones are released and ok=false is
// returned.
func LockAll(ctx context.Context, l Locker, keys []string, ttl time.Duration) (bool, error) {
	acquired := make([]string, 0, len(keys))

	for _, key := range keys {
		ok, err := l.Lock(ctx, key, ttl)
		if err != nil || !ok {
			UnlockAll(ctx, l, acquired)
			return false, err
		}
		acquired = append(acquired, key)
	}

	return true, nil
}

func UnlockAll(ctx context.Context, l Locker, keys []string) {
	for _, key := range keys {
		_ = l.Unlock(ctx, key)
	}
}

type RedisLock struct {
	client *redis.Client
}

func NewRedisLock(redisAddr string) (*RedisLock, error) {
	const op = "lock.NewRedisLock"

	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisLock{client: client}, nil
}

func (r *RedisLock) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	const op = "lock.RedisLock.Lock"

	lockKey := fmt.Sprintf("lock:%s", key)
	result, err := r.client.SetNX(ctx, lockKey, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func (r *RedisLock) Unlock(ctx context.Context, key string) error {
	const op = "lock.RedisLock.Unlock"

	lockKey := fmt.Sprintf("lock:%s", key)
	_, err := r.client.Del(ctx, lockKey).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisLock) Close() error {
	return r.client.Close()
}
