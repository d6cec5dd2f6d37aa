package repository

import (
	"context"
	"github.com/jmoiron/sqlx"
	"studydrive-downloader/config"
)

type CounterRepository struct {
	*config.Database
}

func NewCounterRepository(database *config.Database) *CounterRepository {
	return &CounterRepository{database}
}

// Ensure : создаёт строку счётчика один раз, повторные вызовы ничего не меняют
func (r *CounterRepository) Ensure(ctx context.Context, exec sqlx.ExtContext, name string) error {
	query := `INSERT INTO counters (id, count) VALUES ($1, 0) ON CONFLICT (id) DO NOTHING`
	if _, err := exec.ExecContext(ctx, query, name); err != nil {
		return storeError("[CounterRepo] не удалось создать счётчик", err)
	}
	return nil
}

// Increment : атомарный +1 одним запросом, без чтения-изменения-записи на стороне сервиса
func (r *CounterRepository) Increment(ctx context.Context, exec sqlx.ExtContext, name string) (int64, error) {
	query := `
		INSERT INTO counters (id, count) VALUES ($1, 1)
		ON CONFLICT (id) DO UPDATE SET count = counters.count + 1
		RETURNING count
	`
	var count int64
	if err := sqlx.GetContext(ctx, exec, &count, query, name); err != nil {
		return 0, storeError("[CounterRepo] не удалось увеличить счётчик", err)
	}
	return count, nil
}

func (r *CounterRepository) Read(ctx context.Context, exec sqlx.ExtContext, name string) (int64, error) {
	var count int64
	if err := sqlx.GetContext(ctx, exec, &count, `SELECT count FROM counters WHERE id = $1`, name); err != nil {
		return 0, storeError("[CounterRepo] не удалось прочитать счётчик", err)
	}
	return count, nil
}
