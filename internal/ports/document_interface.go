package ports

import (
	"context"
	"github.com/jmoiron/sqlx"
	"io"
	"studydrive-downloader/internal/model"
	"time"
)

// DocumentRepository : SQL слой документов
type DocumentRepository interface {
	Get(ctx context.Context, exec sqlx.ExtContext, id int64) (*model.Document, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, document *model.Document) (bool, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, document *model.Document) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id int64, cached string, fileName *string) error
	UpdateFlags(ctx context.Context, exec sqlx.ExtContext, id int64, file, preview model.Flag) error
	UpdateState(ctx context.Context, exec sqlx.ExtContext, id int64, state model.FetchState, failure string) error
	ResetFailed(ctx context.Context, exec sqlx.ExtContext, id int64) error
	BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error)
}

// CounterRepository : глобальные счётчики
type CounterRepository interface {
	Ensure(ctx context.Context, exec sqlx.ExtContext, name string) error
	Increment(ctx context.Context, exec sqlx.ExtContext, name string) (int64, error)
	Read(ctx context.Context, exec sqlx.ExtContext, name string) (int64, error)
}

// DownloadRepository : токены на скачивание
type DownloadRepository interface {
	Issue(ctx context.Context, exec sqlx.ExtContext, documentID int64, ttl time.Duration) (*model.DownloadToken, error)
	Redeem(ctx context.Context, exec sqlx.ExtContext, tokenID string) (int64, error)
}

// BlobStorage : хранилище скачанных файлов и превью (диск или S3)
type BlobStorage interface {
	Put(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Location() string
}

// RemoteFetcher : обращения к источнику документов
type RemoteFetcher interface {
	FetchMetadata(ctx context.Context, slug string, id int64) (*model.Metadata, error)
	FetchFile(ctx context.Context, id int64) (*model.Payload, error)
	FetchPreview(ctx context.Context, id int64) (*model.Payload, error)
}

// Orchestrator : конвейер скачивания и кэширования
type Orchestrator interface {
	Request(ctx context.Context, ref model.Reference) (*model.PollResult, error)
	Poll(ctx context.Context, id int64) (*model.PollResult, error)
	Reset(ctx context.Context, ref model.Reference) (*model.PollResult, error)
}

// DocumentService : то, что нужно HTTP слою
type DocumentService interface {
	Submit(ctx context.Context, rawURL string) (*model.Reference, *model.PollResult, error)
	Fetch(ctx context.Context, slug string, id int64) (*model.Reference, *model.PollResult, error)
	Poll(ctx context.Context, id int64) (*model.PollResult, error)
	Reset(ctx context.Context, slug string, id int64) (*model.Reference, *model.PollResult, error)
	StartDownload(ctx context.Context, id int64) (*model.DownloadTicket, error)
	OpenDownload(ctx context.Context, token, fileName string) (io.ReadCloser, string, error)
	OpenPreview(ctx context.Context, id int64) (io.ReadCloser, error)
	DownloadCount(ctx context.Context) (int64, error)
}
