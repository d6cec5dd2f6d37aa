package repository

import (
	"context"
	"github.com/jmoiron/sqlx"
	"studydrive-downloader/config"
	"studydrive-downloader/internal/model"
)

type DocumentRepository struct {
	*config.Database
}

func NewDocumentRepository(database *config.Database) *DocumentRepository {
	return &DocumentRepository{database}
}

const documentColumns = `id, url, title, "user", description, course, date, pages, type,
		       file, preview, cached, file_name, state, failure, created_at, updated_at`

// Get : документ по внешнему id
func (r *DocumentRepository) Get(ctx context.Context, exec sqlx.ExtContext, id int64) (*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	var document model.Document
	if err := sqlx.GetContext(ctx, exec, &document, query, id); err != nil {
		return nil, storeError("[DocumentRepo] не удалось получить документ", err)
	}

	return &document, nil
}

// Insert : создаёт предварительную запись, если документа ещё нет; true - запись создана
func (r *DocumentRepository) Insert(ctx context.Context, exec sqlx.ExtContext, document *model.Document) (bool, error) {
	query := `
		INSERT INTO documents (id, url, file, preview, cached, state)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := exec.ExecContext(ctx, query,
		document.ID,
		document.URL,
		document.File,
		document.Preview,
		document.Cached,
		document.State)
	if err != nil {
		return false, storeError("[DocumentRepo] не удалось создать документ", err)
	}

	affected, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Upsert : создаёт или заменяет запись целиком.
// url не меняется, определённые флаги не сбрасываются, cached/file_name не откатываются к Not cached,
// терминальное состояние сохраняется.
func (r *DocumentRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, document *model.Document) error {
	query := `
		INSERT INTO documents (id, url, title, "user", description, course, date, pages, type,
		                       file, preview, cached, file_name, state, failure)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			title       = EXCLUDED.title,
			"user"      = EXCLUDED."user",
			description = EXCLUDED.description,
			course      = EXCLUDED.course,
			date        = EXCLUDED.date,
			pages       = EXCLUDED.pages,
			type        = EXCLUDED.type,
			file        = CASE WHEN documents.file = 'unknown' THEN EXCLUDED.file ELSE documents.file END,
			preview     = CASE WHEN documents.preview = 'unknown' THEN EXCLUDED.preview ELSE documents.preview END,
			cached      = CASE WHEN documents.cached <> 'Not cached' THEN documents.cached ELSE EXCLUDED.cached END,
			file_name   = CASE WHEN documents.cached <> 'Not cached' THEN documents.file_name ELSE EXCLUDED.file_name END,
			state       = CASE WHEN documents.state IN ('CACHED', 'FAILED') THEN documents.state ELSE EXCLUDED.state END,
			failure     = CASE WHEN documents.state IN ('CACHED', 'FAILED') THEN documents.failure ELSE EXCLUDED.failure END,
			updated_at  = NOW()
	`
	_, err := exec.ExecContext(ctx, query,
		document.ID,
		document.URL,
		document.Title,
		document.User,
		document.Description,
		document.Course,
		document.Date,
		document.Pages,
		document.Type,
		document.File,
		document.Preview,
		document.Cached,
		document.FileName,
		document.State,
		document.Failure)
	if err != nil {
		return storeError("[DocumentRepo] не удалось сохранить документ", err)
	}

	return nil
}

// UpdateStatus : меняет только cached и file_name; вернуть cached к Not cached нельзя,
// file_name задаётся только вместе с терминальным cached и после этого не стирается
func (r *DocumentRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id int64, cached string, fileName *string) error {
	if cached == model.NotCached && fileName != nil {
		return model.ErrFileNameWithoutCache
	}

	query := `
		UPDATE documents
		SET cached = $2, file_name = $3, updated_at = NOW()
		WHERE id = $1
		  AND (cached = 'Not cached' OR $2 <> 'Not cached')
		  AND ($2 <> 'Not cached' OR $3 IS NULL)
		  AND (file_name IS NULL OR $3 IS NOT NULL)
	`
	result, err := exec.ExecContext(ctx, query, id, cached, fileName)
	if err != nil {
		return storeError("[DocumentRepo] не удалось обновить статус кэширования", err)
	}

	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	exists, err := documentExists(ctx, exec, id)
	if err != nil {
		return err
	}
	if exists {
		return model.ErrCachedRegression
	}
	return model.ErrNotFound
}

// UpdateFlags : флаги file/preview выставляются один раз, unknown во входных данных игнорируется
func (r *DocumentRepository) UpdateFlags(ctx context.Context, exec sqlx.ExtContext, id int64, file, preview model.Flag) error {
	query := `
		UPDATE documents
		SET file       = CASE WHEN file = 'unknown' AND $2 <> 'unknown' THEN $2 ELSE file END,
		    preview    = CASE WHEN preview = 'unknown' AND $3 <> 'unknown' THEN $3 ELSE preview END,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := exec.ExecContext(ctx, query, id, file, preview)
	if err != nil {
		return storeError("[DocumentRepo] не удалось обновить флаги документа", err)
	}

	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdateState : переход конвейера; из CACHED и FAILED выйти нельзя
func (r *DocumentRepository) UpdateState(ctx context.Context, exec sqlx.ExtContext, id int64, state model.FetchState, failure string) error {
	query := `
		UPDATE documents
		SET state = $2, failure = $3, updated_at = NOW()
		WHERE id = $1 AND state NOT IN ('CACHED', 'FAILED')
	`
	result, err := exec.ExecContext(ctx, query, id, state, failure)
	if err != nil {
		return storeError("[DocumentRepo] не удалось обновить состояние документа", err)
	}

	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	exists, err := documentExists(ctx, exec, id)
	if err != nil {
		return err
	}
	if exists {
		return model.ErrTerminalState
	}
	return model.ErrNotFound
}

// ResetFailed : единственный выход из FAILED - явный сброс к METADATA_PENDING
func (r *DocumentRepository) ResetFailed(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	query := `
		UPDATE documents
		SET state = 'METADATA_PENDING', failure = '', updated_at = NOW()
		WHERE id = $1 AND state = 'FAILED'
	`
	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return storeError("[DocumentRepo] не удалось сбросить документ", err)
	}

	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	exists, err := documentExists(ctx, exec, id)
	if err != nil {
		return err
	}
	if exists {
		return model.ErrNotFailed
	}
	return model.ErrNotFound
}

func (r *DocumentRepository) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, nil, storeError("[DocumentRepo] не удалось начать транзакцию", err)
	}
	return tx, tx.Rollback, tx.Commit, nil
}
