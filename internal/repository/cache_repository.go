package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
	"studydrive-downloader/config"
	"studydrive-downloader/internal/model"
	"studydrive-downloader/internal/util"
	"time"
)

// CacheRepository : read-through кэш документов в Redis.
// Хранит только документы в CACHED: они больше не меняются, поэтому кэш не может отстать от БД.
type CacheRepository struct {
	client *config.RedisClient
	ttl    time.Duration
}

func NewCacheRepository(rdb *config.RedisClient, ttl time.Duration) *CacheRepository {
	return &CacheRepository{rdb, ttl}
}

func (r *CacheRepository) SetDocument(ctx context.Context, document *model.Document) error {
	if document.State != model.StateCached {
		return nil
	}

	data, err := json.Marshal(document)
	if err != nil {
		return util.LogError("[CacheRepo] ошибка сериализации документа", err)
	}

	cmd := r.client.Client.Set(ctx, r.key(document.ID), data, r.ttl)
	if err = cmd.Err(); err != nil {
		return util.LogError("[CacheRepo] ошибка сохранения в Redis", err)
	}
	if cmd.Val() != "OK" {
		return fmt.Errorf("неожиданный ответ Redis: %s", cmd.Val())
	}

	return nil
}

func (r *CacheRepository) GetDocument(ctx context.Context, id int64) (*model.Document, error) {
	val, err := r.client.Client.Get(ctx, r.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil // нет в кэше
	} else if err != nil {
		return nil, util.LogError("[CacheRepo] ошибка получения документа из Redis", err)
	}

	var document model.Document
	if err := json.Unmarshal([]byte(val), &document); err != nil {
		return nil, util.LogError("[CacheRepo] ошибка десериализации документа из кэша", err)
	}
	return &document, nil
}

func (r *CacheRepository) key(id int64) string {
	return fmt.Sprintf("document:%d", id)
}
