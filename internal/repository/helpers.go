package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/jmoiron/sqlx"
	"studydrive-downloader/internal/model"
	"studydrive-downloader/internal/util"
)

// storeError : любая ошибка драйвера, кроме ErrNoRows, означает недоступность хранилища
func storeError(message string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return util.LogError(message, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err))
}

// documentExists : нужен, чтобы отличить "нет строки" от "условие UPDATE не выполнено"
func documentExists(ctx context.Context, exec sqlx.ExtContext, id int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, exec, &exists, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, id)
	if err != nil {
		return false, storeError("[DocumentRepo] ошибка проверки существования документа", err)
	}
	return exists, nil
}

func rowsAffected(result sql.Result) (int64, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, storeError("[Repo] не удалось получить число изменённых строк", err)
	}
	return affected, nil
}
