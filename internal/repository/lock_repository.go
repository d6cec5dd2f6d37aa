package repository

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"studydrive-downloader/config"
	"studydrive-downloader/internal/util"
	"time"
)

// releaseScript : снимаем блокировку, только если она всё ещё наша
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockRepository : блокировка скачивания документа между экземплярами сервиса.
// TTL защищает от экземпляра, упавшего посреди скачивания.
type LockRepository struct {
	client *config.RedisClient
	ttl    time.Duration
}

func NewLockRepository(rdb *config.RedisClient, ttl time.Duration) *LockRepository {
	return &LockRepository{client: rdb, ttl: ttl}
}

// Acquire : acquired=false, если документ уже скачивает другой экземпляр
func (r *LockRepository) Acquire(ctx context.Context, id int64) (func(), bool, error) {
	key := r.key(id)
	owner := uuid.New().String()

	ok, err := r.client.Client.SetNX(ctx, key, owner, r.ttl).Result()
	if err != nil {
		return nil, false, util.LogError("[LockRepo] ошибка захвата блокировки в Redis", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.client.Client, []string{key}, owner).Err(); err != nil {
			log.WithError(err).Warnf("[LockRepo] не удалось снять блокировку %s", key)
		}
	}
	return release, true, nil
}

func (r *LockRepository) key(id int64) string {
	return fmt.Sprintf("fetch-lock:%d", id)
}
