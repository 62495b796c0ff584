// Package lock сериализует создание арендаторов с одинаковым именем схемы.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"TenancyPlatform/pkg/errors"
)

// Locker захватывает блокировку по ключу
type Locker interface {
	// Acquire возвращает ErrConflict, если ключ уже занят
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// Lock захваченная блокировка
type Lock interface {
	Release(ctx context.Context) error
}

// releaseScript удаляет ключ, только если он все еще принадлежит владельцу
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker блокировка на Redis: SET NX с TTL и токеном владельца
type RedisLocker struct {
	client redis.Cmdable
	prefix string
}

// NewRedisLocker создает новый экземпляр RedisLocker
func NewRedisLocker(client redis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client, prefix: "lock:tenant:schema"}
}

type redisLock struct {
	client redis.Cmdable
	key    string
	token  string
}

// Acquire пытается захватить блокировку
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lockKey := fmt.Sprintf("%s:%s", l.prefix, key)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to acquire lock").
			WithDetails(fmt.Sprintf("key: %s", key)).
			WithContext(ctx)
	}
	if !ok {
		return nil, errors.New(errors.ErrConflict, "lock already acquired").
			WithDetails(fmt.Sprintf("key: %s", key)).
			WithContext(ctx)
	}

	return &redisLock{client: l.client, key: lockKey, token: token}, nil
}

// Release освобождает блокировку, если TTL еще не истек и ее не перехватили
func (l *redisLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to release lock").
			WithDetails(fmt.Sprintf("key: %s", l.key)).
			WithContext(ctx)
	}
	return nil
}

// NoopLocker используется без Redis; гонки закрывает ограничение уникальности
type NoopLocker struct{}

type noopLock struct{}

func (NoopLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	return noopLock{}, nil
}

func (noopLock) Release(ctx context.Context) error { return nil }
