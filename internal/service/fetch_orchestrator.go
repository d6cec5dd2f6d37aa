package service

import (
	"context"
	"errors"
	"fmt"
	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-retry"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"path/filepath"
	"strconv"
	"strings"
	"studydrive-downloader/internal/metrics"
	"studydrive-downloader/internal/model"
	"studydrive-downloader/internal/ports"
	"studydrive-downloader/internal/util"
	"sync"
	"time"
)

// FetchPolicy : параметры пула и повторов
type FetchPolicy struct {
	Workers     int64
	MaxAttempts uint64
	RetryDelay  time.Duration
}

// FileKey : ключ закэшированного файла в BlobStorage
func FileKey(fileName string) string {
	return "files/" + fileName
}

// PreviewKey : ключ закэшированного превью в BlobStorage
func PreviewKey(id int64) string {
	return fmt.Sprintf("previews/%d.png", id)
}

// FetchOrchestrator : ведёт документ по конвейеру
// UNRESOLVED -> METADATA_PENDING -> METADATA_READY -> FILE_PENDING -> CACHED (или FAILED).
// На один id одновременно выполняется не больше одной последовательности обращений к источнику.
type FetchOrchestrator struct {
	documentRepository ports.DocumentRepository
	cacheRepository    ports.CacheRepository
	locker             ports.FetchLocker
	fetcher            ports.RemoteFetcher
	storage            ports.BlobStorage
	db                 sqlx.ExtContext

	group       singleflight.Group
	workers     *semaphore.Weighted
	maxAttempts uint64
	retryDelay  time.Duration
	running     sync.WaitGroup
}

// NewFetchOrchestrator : cacheRepository и locker необязательны (nil, если Redis выключен)
func NewFetchOrchestrator(
	documentRepository ports.DocumentRepository,
	cacheRepository ports.CacheRepository,
	locker ports.FetchLocker,
	fetcher ports.RemoteFetcher,
	storage ports.BlobStorage,
	db sqlx.ExtContext,
	policy FetchPolicy,
) *FetchOrchestrator {
	if policy.Workers < 1 {
		policy.Workers = 1
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.RetryDelay <= 0 {
		policy.RetryDelay = time.Millisecond
	}

	return &FetchOrchestrator{
		documentRepository: documentRepository,
		cacheRepository:    cacheRepository,
		locker:             locker,
		fetcher:            fetcher,
		storage:            storage,
		db:                 db,
		workers:            semaphore.NewWeighted(policy.Workers),
		maxAttempts:        policy.MaxAttempts,
		retryDelay:         policy.RetryDelay,
	}
}

// Request : создаёт предварительную запись и запускает скачивание в фоне, не дожидаясь его.
// Для документа в CACHED или FAILED ничего не запускается.
func (o *FetchOrchestrator) Request(ctx context.Context, ref model.Reference) (*model.PollResult, error) {
	document, err := o.documentRepository.Get(ctx, o.db, ref.ID)
	if errors.Is(err, model.ErrNotFound) {
		created, err := o.documentRepository.Insert(ctx, o.db, model.NewPendingDocument(ref))
		if err != nil {
			return nil, err
		}
		if created {
			log.Printf("[FetchOrchestrator] документ %d поставлен в очередь", ref.ID)
		}
		document, err = o.documentRepository.Get(ctx, o.db, ref.ID)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if !document.State.Terminal() {
		o.launch(ctx, ref)
	}

	return &model.PollResult{Status: document.State, Document: document}, nil
}

// Poll : чистое чтение текущего состояния, никогда не ждёт скачивания
func (o *FetchOrchestrator) Poll(ctx context.Context, id int64) (*model.PollResult, error) {
	if o.cacheRepository != nil {
		document, err := o.cacheRepository.GetDocument(ctx, id)
		if err != nil {
			log.Printf("[FetchOrchestrator] ошибка чтения кэша документа %d: %v", id, err)
		} else if document != nil {
			return &model.PollResult{Status: document.State, Document: document}, nil
		}
	}

	document, err := o.documentRepository.Get(ctx, o.db, id)
	if err != nil {
		return nil, err
	}

	if document.State == model.StateCached {
		o.remember(ctx, document)
	}

	return &model.PollResult{Status: document.State, Document: document}, nil
}

// Reset : FAILED не повторяется сам, только явным сбросом
func (o *FetchOrchestrator) Reset(ctx context.Context, ref model.Reference) (*model.PollResult, error) {
	if err := o.documentRepository.ResetFailed(ctx, o.db, ref.ID); err != nil {
		return nil, err
	}
	o.group.Forget(o.key(ref.ID))

	log.Printf("[FetchOrchestrator] документ %d сброшен после ошибки", ref.ID)
	return o.Request(ctx, ref)
}

// Wait : ждёт завершения запущенных последовательностей
func (o *FetchOrchestrator) Wait() {
	o.running.Wait()
}

// launch : ушедший клиент не отменяет скачивание, результат пригодится следующим
func (o *FetchOrchestrator) launch(ctx context.Context, ref model.Reference) {
	detached := context.WithoutCancel(ctx)

	o.running.Add(1)
	ch := o.group.DoChan(o.key(ref.ID), func() (any, error) {
		return nil, o.run(detached, ref)
	})

	go func() {
		defer o.running.Done()
		<-ch
	}()
}

func (o *FetchOrchestrator) run(ctx context.Context, ref model.Reference) error {
	if err := o.workers.Acquire(ctx, 1); err != nil {
		return err
	}
	defer o.workers.Release(1)

	metrics.FetchesInFlight.Inc()
	defer metrics.FetchesInFlight.Dec()

	if o.locker != nil {
		release, acquired, err := o.locker.Acquire(ctx, ref.ID)
		switch {
		case err != nil:
			log.Printf("[FetchOrchestrator] блокировка документа %d недоступна, продолжаем локально: %v", ref.ID, err)
		case !acquired:
			log.Printf("[FetchOrchestrator] документ %d уже скачивает другой экземпляр", ref.ID)
			return nil
		default:
			defer release()
		}
	}

	document, err := o.documentRepository.Get(ctx, o.db, ref.ID)
	if err != nil {
		return util.LogError(fmt.Sprintf("[FetchOrchestrator] не удалось прочитать документ %d", ref.ID), err)
	}
	if document.State.Terminal() {
		return nil
	}

	started := time.Now()
	err = o.advance(ctx, ref, document)
	metrics.FetchDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.FetchSequences.WithLabelValues(string(model.StateFailed)).Inc()
		o.fail(ctx, ref.ID, err)
		return err
	}

	metrics.FetchSequences.WithLabelValues(string(model.StateCached)).Inc()
	log.Printf("[FetchOrchestrator] документ %d закэширован за %s", ref.ID, time.Since(started).Round(time.Millisecond))
	return nil
}

func (o *FetchOrchestrator) advance(ctx context.Context, ref model.Reference, document *model.Document) error {
	if document.State == model.StateMetadataPending {
		var metadata *model.Metadata
		err := o.withRetry(ctx, "metadata", ref.ID, func(ctx context.Context) error {
			var err error
			metadata, err = o.fetcher.FetchMetadata(ctx, ref.Slug, ref.ID)
			return err
		})
		if err != nil {
			return err
		}

		document.ApplyMetadata(metadata)
		document.State = model.StateMetadataReady
		document.Failure = ""
		if err := o.documentRepository.Upsert(ctx, o.db, document); err != nil {
			return err
		}
	}

	if err := o.documentRepository.UpdateState(ctx, o.db, ref.ID, model.StateFilePending, ""); err != nil {
		return err
	}
	document.State = model.StateFilePending

	fileFlag, previewFlag, fileName, err := o.fetchPayloads(ctx, ref, document)
	if err != nil {
		return err
	}

	if err := o.documentRepository.UpdateFlags(ctx, o.db, ref.ID, fileFlag, previewFlag); err != nil {
		return err
	}

	if err := o.complete(ctx, ref.ID, fileName); err != nil {
		return err
	}

	cached, err := o.documentRepository.Get(ctx, o.db, ref.ID)
	if err != nil {
		log.Printf("[FetchOrchestrator] документ %d закэширован, но не перечитан: %v", ref.ID, err)
		return nil
	}
	o.remember(ctx, cached)
	return nil
}

// fetchPayloads : файл и превью качаются параллельно; флаг absent пропускается, unknown пробуется
func (o *FetchOrchestrator) fetchPayloads(ctx context.Context, ref model.Reference, document *model.Document) (model.Flag, model.Flag, *string, error) {
	fileFlag, previewFlag := document.File, document.Preview
	var fileName *string

	g, gctx := errgroup.WithContext(ctx)

	if document.File != model.FlagAbsent {
		g.Go(func() error {
			payload, err := o.fetchPayload(gctx, "file", ref.ID, o.fetcher.FetchFile)
			if errors.Is(err, model.ErrAbsent) {
				fileFlag = model.FlagAbsent
				return nil
			} else if err != nil {
				return err
			}

			name := cachedFileName(ref, document, payload)
			if err := o.storage.Put(gctx, FileKey(name), payload.Data); err != nil {
				return err
			}
			fileFlag, fileName = model.FlagPresent, &name
			return nil
		})
	}

	if document.Preview != model.FlagAbsent {
		g.Go(func() error {
			payload, err := o.fetchPayload(gctx, "preview", ref.ID, o.fetcher.FetchPreview)
			if errors.Is(err, model.ErrAbsent) {
				previewFlag = model.FlagAbsent
				return nil
			} else if err != nil {
				return err
			}

			if err := o.storage.Put(gctx, PreviewKey(ref.ID), payload.Data); err != nil {
				return err
			}
			previewFlag = model.FlagPresent
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", "", nil, err
	}
	return fileFlag, previewFlag, fileName, nil
}

func (o *FetchOrchestrator) fetchPayload(ctx context.Context, op string, id int64, fetch func(context.Context, int64) (*model.Payload, error)) (*model.Payload, error) {
	var payload *model.Payload
	err := o.withRetry(ctx, op, id, func(ctx context.Context) error {
		var err error
		payload, err = fetch(ctx, id)
		return err
	})
	return payload, err
}

// complete : cached, file_name и состояние CACHED пишутся одной транзакцией
func (o *FetchOrchestrator) complete(ctx context.Context, id int64, fileName *string) error {
	exec, rollback, commit, err := o.documentRepository.BeginTX(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	if err := o.documentRepository.UpdateStatus(ctx, exec, id, o.storage.Location(), fileName); err != nil {
		return err
	}
	if err := o.documentRepository.UpdateState(ctx, exec, id, model.StateCached, ""); err != nil {
		return err
	}

	if err := commit(); err != nil {
		return util.LogError("[FetchOrchestrator] не удалось закоммитить транзакцию", err)
	}
	return nil
}

// withRetry : повторяются только временные ошибки источника, не больше maxAttempts попыток
func (o *FetchOrchestrator) withRetry(ctx context.Context, op string, id int64, fn func(context.Context) error) error {
	attempt := uint64(0)
	backoff := retry.WithMaxRetries(o.maxAttempts-1, retry.NewConstant(o.retryDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil && model.IsTemporary(err) {
			log.Printf("[FetchOrchestrator] документ %d: %s, попытка %d из %d: %v", id, op, attempt, o.maxAttempts, err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (o *FetchOrchestrator) fail(ctx context.Context, id int64, cause error) {
	log.WithError(cause).Errorf("[FetchOrchestrator] скачивание документа %d завершилось ошибкой", id)

	err := o.documentRepository.UpdateState(ctx, o.db, id, model.StateFailed, cause.Error())
	if err != nil && !errors.Is(err, model.ErrTerminalState) {
		util.LogError(fmt.Sprintf("[FetchOrchestrator] не удалось перевести документ %d в FAILED", id), err)
	}
}

func (o *FetchOrchestrator) remember(ctx context.Context, document *model.Document) {
	if o.cacheRepository == nil {
		return
	}
	if err := o.cacheRepository.SetDocument(ctx, document); err != nil {
		log.Printf("[FetchOrchestrator] ошибка кэширования документа %d: %v", document.ID, err)
	}
}

func (o *FetchOrchestrator) key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// cachedFileName : имя из Content-Disposition, иначе название документа или slug
func cachedFileName(ref model.Reference, document *model.Document, payload *model.Payload) string {
	ext := filepath.Ext(payload.FileName)
	stem := strings.TrimSuffix(payload.FileName, ext)
	if ext == "" {
		ext = util.ExtensionByContentType(payload.ContentType)
	}
	if stem == "" {
		stem = document.Title
	}
	if stem == "" {
		stem = ref.Slug
	}
	return util.SafeFileName(fmt.Sprintf("%d-%s%s", ref.ID, stem, ext))
}
