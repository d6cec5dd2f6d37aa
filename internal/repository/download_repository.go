package repository

import (
	"context"
	"errors"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	"studydrive-downloader/config"
	"studydrive-downloader/internal/model"
	"studydrive-downloader/internal/util"
	"time"
)

// maxTokenAttempts : сколько раз пробуем новый токен при коллизии первичного ключа
const maxTokenAttempts = 5

var errTokenCollision = errors.New("коллизия первичного ключа")

type DownloadRepository struct {
	*config.Database
	now      func() time.Time
	newToken func() (string, error)
}

func NewDownloadRepository(database *config.Database) *DownloadRepository {
	return &DownloadRepository{
		Database: database,
		now:      time.Now,
		newToken: func() (string, error) { return util.GenerateRandomToken(util.DownloadTokenLength) },
	}
}

// WithClock : подмена часов, истечение токена проверяется по ним
func (r *DownloadRepository) WithClock(now func() time.Time) *DownloadRepository {
	r.now = now
	return r
}

// Issue : сохраняет новый токен с expires = now + ttl
func (r *DownloadRepository) Issue(ctx context.Context, exec sqlx.ExtContext, documentID int64, ttl time.Duration) (*model.DownloadToken, error) {
	query := `
		INSERT INTO downloads (id, document_id, expires)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`

	for attempt := 1; ; attempt++ {
		id, err := r.newToken()
		if err != nil {
			return nil, err
		}

		token := &model.DownloadToken{
			ID:         id,
			DocumentID: documentID,
			Expires:    r.now().Add(ttl).UTC(),
		}

		result, err := exec.ExecContext(ctx, query, token.ID, token.DocumentID, token.Expires)
		if err != nil {
			return nil, storeError("[DownloadRepo] не удалось сохранить токен скачивания", err)
		}

		affected, err := rowsAffected(result)
		if err != nil {
			return nil, err
		}
		if affected > 0 {
			return token, nil
		}

		if attempt >= maxTokenAttempts {
			return nil, util.LogError("[DownloadRepo] не удалось подобрать свободный токен скачивания", errTokenCollision)
		}
		log.Warnf("[DownloadRepo] коллизия токена скачивания, попытка %d", attempt)
	}
}

// Redeem : id документа, если токен существует и ещё не истёк на момент чтения.
// Токен не гасится: до expires по нему можно скачивать повторно.
func (r *DownloadRepository) Redeem(ctx context.Context, exec sqlx.ExtContext, tokenID string) (int64, error) {
	query := `SELECT id, document_id, expires FROM downloads WHERE id = $1`

	var token model.DownloadToken
	if err := sqlx.GetContext(ctx, exec, &token, query, tokenID); err != nil {
		return 0, storeError("[DownloadRepo] не удалось получить токен скачивания", err)
	}

	if !token.ValidAt(r.now()) {
		return 0, model.ErrExpired
	}
	return token.DocumentID, nil
}
