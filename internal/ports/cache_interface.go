package ports

import (
	"context"
	"studydrive-downloader/internal/model"
)

// CacheRepository : Redis слой, хранит только документы в состоянии CACHED
type CacheRepository interface {
	SetDocument(ctx context.Context, document *model.Document) error
	GetDocument(ctx context.Context, id int64) (*model.Document, error)
}

// FetchLocker : блокировка скачивания документа между экземплярами сервиса
type FetchLocker interface {
	Acquire(ctx context.Context, id int64) (release func(), acquired bool, err error)
}
