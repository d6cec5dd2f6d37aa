package service

import (
	"context"
	"fmt"
	"github.com/jellydator/ttlcache/v3"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	"io"
	"net/url"
	"studydrive-downloader/internal/metrics"
	"studydrive-downloader/internal/model"
	"studydrive-downloader/internal/ports"
	"studydrive-downloader/internal/util"
	"time"
)

type DocumentService struct {
	resolver           *ReferenceResolver
	orchestrator       ports.Orchestrator
	documentRepository ports.DocumentRepository
	counterRepository  ports.CounterRepository
	downloadRepository ports.DownloadRepository
	storage            ports.BlobStorage
	db                 sqlx.ExtContext
	downloadTTL        time.Duration
	counterCache       *ttlcache.Cache[string, int64]
}

func NewDocumentService(
	resolver *ReferenceResolver,
	orchestrator ports.Orchestrator,
	documentRepository ports.DocumentRepository,
	counterRepository ports.CounterRepository,
	downloadRepository ports.DownloadRepository,
	storage ports.BlobStorage,
	db sqlx.ExtContext,
	downloadTTL time.Duration,
	counterReadTTL time.Duration,
) *DocumentService {
	return &DocumentService{
		resolver:           resolver,
		orchestrator:       orchestrator,
		documentRepository: documentRepository,
		counterRepository:  counterRepository,
		downloadRepository: downloadRepository,
		storage:            storage,
		db:                 db,
		downloadTTL:        downloadTTL,
		counterCache:       ttlcache.New[string, int64](ttlcache.WithTTL[string, int64](counterReadTTL)),
	}
}

// Submit : ссылка, вставленная пользователем
func (s *DocumentService) Submit(ctx context.Context, rawURL string) (*model.Reference, *model.PollResult, error) {
	ref, err := s.resolver.Resolve(rawURL)
	if err != nil {
		return nil, nil, err
	}
	return s.request(ctx, ref)
}

// Fetch : клиент пришёл сразу с парой (slug, id)
func (s *DocumentService) Fetch(ctx context.Context, slug string, id int64) (*model.Reference, *model.PollResult, error) {
	ref, err := s.resolver.Validate(slug, id)
	if err != nil {
		return nil, nil, err
	}
	return s.request(ctx, ref)
}

func (s *DocumentService) request(ctx context.Context, ref model.Reference) (*model.Reference, *model.PollResult, error) {
	result, err := s.orchestrator.Request(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	return &ref, result, nil
}

func (s *DocumentService) Poll(ctx context.Context, id int64) (*model.PollResult, error) {
	return s.orchestrator.Poll(ctx, id)
}

// Reset : повторная попытка для документа в FAILED
func (s *DocumentService) Reset(ctx context.Context, slug string, id int64) (*model.Reference, *model.PollResult, error) {
	ref, err := s.resolver.Validate(slug, id)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.orchestrator.Reset(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	return &ref, result, nil
}

// StartDownload : выдаёт токен на скачивание закэшированного файла и увеличивает глобальный счётчик
// в одной транзакции
func (s *DocumentService) StartDownload(ctx context.Context, id int64) (*model.DownloadTicket, error) {
	result, err := s.orchestrator.Poll(ctx, id)
	if err != nil {
		return nil, err
	}
	if result.Status != model.StateCached {
		return nil, fmt.Errorf("%w: документ %d ещё не закэширован (%s)", model.ErrNotFound, id, result.Status)
	}
	if !result.Document.HasFile() {
		return nil, model.ErrNoFile
	}

	exec, rollback, commit, err := s.documentRepository.BeginTX(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	token, err := s.downloadRepository.Issue(ctx, exec, id, s.downloadTTL)
	if err != nil {
		return nil, err
	}

	count, err := s.counterRepository.Increment(ctx, exec, model.DownloadCounterName)
	if err != nil {
		return nil, err
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[DocumentService] не удалось закоммитить выдачу токена", err)
	}
	s.counterCache.Set(model.DownloadCounterName, count, ttlcache.DefaultTTL)
	metrics.Downloads.Inc()

	fileName := *result.Document.FileName
	log.Printf("[DocumentService] выдан токен на скачивание документа %d, всего скачиваний %d", id, count)

	return &model.DownloadTicket{
		Token:    token,
		FileName: fileName,
		URL:      fmt.Sprintf("/download/%s/%s", token.ID, url.PathEscape(fileName)),
		Count:    count,
	}, nil
}

// OpenDownload : токен действует до истечения срока, имя файла должно совпадать с закэшированным
func (s *DocumentService) OpenDownload(ctx context.Context, token, fileName string) (io.ReadCloser, string, error) {
	documentID, err := s.downloadRepository.Redeem(ctx, s.db, token)
	if err != nil {
		return nil, "", err
	}

	document, err := s.documentRepository.Get(ctx, s.db, documentID)
	if err != nil {
		return nil, "", err
	}
	if !document.HasFile() || *document.FileName != fileName {
		return nil, "", model.ErrNotFound
	}

	reader, err := s.storage.Open(ctx, FileKey(fileName))
	if err != nil {
		return nil, "", err
	}
	return reader, util.ContentTypeByName(fileName), nil
}

func (s *DocumentService) OpenPreview(ctx context.Context, id int64) (io.ReadCloser, error) {
	return s.storage.Open(ctx, PreviewKey(id))
}

// DownloadCount : значение счётчика, кэшируется на counterRead
func (s *DocumentService) DownloadCount(ctx context.Context) (int64, error) {
	if item := s.counterCache.Get(model.DownloadCounterName); item != nil {
		return item.Value(), nil
	}

	count, err := s.counterRepository.Read(ctx, s.db, model.DownloadCounterName)
	if err != nil {
		return 0, err
	}
	s.counterCache.Set(model.DownloadCounterName, count, ttlcache.DefaultTTL)
	return count, nil
}
