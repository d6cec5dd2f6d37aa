package service_test

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"studydrive-downloader/internal/model"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
)

// ===== testify моки для DocumentService =====

type MockOrchestrator struct{ mock.Mock }

func (m *MockOrchestrator) Request(ctx context.Context, ref model.Reference) (*model.PollResult, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PollResult), args.Error(1)
}

func (m *MockOrchestrator) Poll(ctx context.Context, id int64) (*model.PollResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PollResult), args.Error(1)
}

func (m *MockOrchestrator) Reset(ctx context.Context, ref model.Reference) (*model.PollResult, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PollResult), args.Error(1)
}

type MockDocumentRepository struct{ mock.Mock }

func (m *MockDocumentRepository) Get(ctx context.Context, exec sqlx.ExtContext, id int64) (*model.Document, error) {
	args := m.Called(ctx, exec, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) Insert(ctx context.Context, exec sqlx.ExtContext, document *model.Document) (bool, error) {
	args := m.Called(ctx, exec, document)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, document *model.Document) error {
	return m.Called(ctx, exec, document).Error(0)
}

func (m *MockDocumentRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id int64, cached string, fileName *string) error {
	return m.Called(ctx, exec, id, cached, fileName).Error(0)
}

func (m *MockDocumentRepository) UpdateFlags(ctx context.Context, exec sqlx.ExtContext, id int64, file, preview model.Flag) error {
	return m.Called(ctx, exec, id, file, preview).Error(0)
}

func (m *MockDocumentRepository) UpdateState(ctx context.Context, exec sqlx.ExtContext, id int64, state model.FetchState, failure string) error {
	return m.Called(ctx, exec, id, state, failure).Error(0)
}

func (m *MockDocumentRepository) ResetFailed(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	return m.Called(ctx, exec, id).Error(0)
}

func (m *MockDocumentRepository) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	args := m.Called(ctx)
	return args.Get(0).(sqlx.ExtContext), args.Get(1).(func() error), args.Get(2).(func() error), args.Error(3)
}

type MockDownloadRepository struct{ mock.Mock }

func (m *MockDownloadRepository) Issue(ctx context.Context, exec sqlx.ExtContext, documentID int64, ttl time.Duration) (*model.DownloadToken, error) {
	args := m.Called(ctx, exec, documentID, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DownloadToken), args.Error(1)
}

func (m *MockDownloadRepository) Redeem(ctx context.Context, exec sqlx.ExtContext, tokenID string) (int64, error) {
	args := m.Called(ctx, exec, tokenID)
	return args.Get(0).(int64), args.Error(1)
}

type MockCounterRepository struct{ mock.Mock }

func (m *MockCounterRepository) Ensure(ctx context.Context, exec sqlx.ExtContext, name string) error {
	return m.Called(ctx, exec, name).Error(0)
}

func (m *MockCounterRepository) Increment(ctx context.Context, exec sqlx.ExtContext, name string) (int64, error) {
	args := m.Called(ctx, exec, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCounterRepository) Read(ctx context.Context, exec sqlx.ExtContext, name string) (int64, error) {
	args := m.Called(ctx, exec, name)
	return args.Get(0).(int64), args.Error(1)
}

type fakeTx struct{}

func (f *fakeTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (f *fakeTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (f *fakeTx) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	return nil, nil
}

func (f *fakeTx) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	return &sqlx.Row{}
}

func (f *fakeTx) DriverName() string         { return "fake" }
func (f *fakeTx) Rebind(query string) string { return query }
func (f *fakeTx) BindNamed(query string, arg interface{}) (string, []interface{}, error) {
	return "", nil, nil
}

// ===== in-memory реализации для конвейера =====

// memoryCounter : атомарный счётчик вместо таблицы counters
type memoryCounter struct {
	value atomic.Int64
	reads atomic.Int64
}

func (c *memoryCounter) Ensure(ctx context.Context, exec sqlx.ExtContext, name string) error {
	return nil
}

func (c *memoryCounter) Increment(ctx context.Context, exec sqlx.ExtContext, name string) (int64, error) {
	return c.value.Add(1), nil
}

func (c *memoryCounter) Read(ctx context.Context, exec sqlx.ExtContext, name string) (int64, error) {
	c.reads.Add(1)
	return c.value.Load(), nil
}

// memoryDocuments : таблица documents с теми же правилами переходов, что и SQL
type memoryDocuments struct {
	mu        sync.Mutex
	documents map[int64]model.Document
	failOn    model.FetchState
}

func newMemoryDocuments() *memoryDocuments {
	return &memoryDocuments{documents: map[int64]model.Document{}}
}

func (r *memoryDocuments) Get(ctx context.Context, exec sqlx.ExtContext, id int64) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	document, ok := r.documents[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &document, nil
}

func (r *memoryDocuments) Insert(ctx context.Context, exec sqlx.ExtContext, document *model.Document) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.documents[document.ID]; ok {
		return false, nil
	}
	r.documents[document.ID] = *document
	return true, nil
}

func (r *memoryDocuments) Upsert(ctx context.Context, exec sqlx.ExtContext, document *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.documents[document.ID]
	if !ok {
		r.documents[document.ID] = *document
		return nil
	}
	next := *document
	next.URL = stored.URL
	if stored.File != model.FlagUnknown {
		next.File = stored.File
	}
	if stored.Preview != model.FlagUnknown {
		next.Preview = stored.Preview
	}
	if stored.IsCached() {
		next.Cached, next.FileName = stored.Cached, stored.FileName
	}
	if stored.State.Terminal() {
		next.State, next.Failure = stored.State, stored.Failure
	}
	r.documents[document.ID] = next
	return nil
}

func (r *memoryDocuments) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id int64, cached string, fileName *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached == model.NotCached && fileName != nil {
		return model.ErrFileNameWithoutCache
	}
	document, ok := r.documents[id]
	if !ok {
		return model.ErrNotFound
	}
	if document.IsCached() && cached == model.NotCached {
		return model.ErrCachedRegression
	}
	if document.FileName != nil && fileName == nil {
		return model.ErrCachedRegression
	}
	document.Cached, document.FileName = cached, fileName
	r.documents[id] = document
	return nil
}

func (r *memoryDocuments) UpdateFlags(ctx context.Context, exec sqlx.ExtContext, id int64, file, preview model.Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	document, ok := r.documents[id]
	if !ok {
		return model.ErrNotFound
	}
	if document.File == model.FlagUnknown {
		document.File = file
	}
	if document.Preview == model.FlagUnknown {
		document.Preview = preview
	}
	r.documents[id] = document
	return nil
}

func (r *memoryDocuments) UpdateState(ctx context.Context, exec sqlx.ExtContext, id int64, state model.FetchState, failure string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failOn != "" && state == r.failOn {
		return fmt.Errorf("%w: запись %s недоступна", model.ErrStoreUnavailable, state)
	}
	document, ok := r.documents[id]
	if !ok {
		return model.ErrNotFound
	}
	if document.State.Terminal() {
		return model.ErrTerminalState
	}
	document.State, document.Failure = state, failure
	r.documents[id] = document
	return nil
}

func (r *memoryDocuments) ResetFailed(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	document, ok := r.documents[id]
	if !ok {
		return model.ErrNotFound
	}
	if document.State != model.StateFailed {
		return model.ErrNotFailed
	}
	document.State, document.Failure = model.StateMetadataPending, ""
	r.documents[id] = document
	return nil
}

func (r *memoryDocuments) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	return &fakeTx{}, func() error { return nil }, func() error { return nil }, nil
}

// memoryBlobs : BlobStorage в памяти
type memoryBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{blobs: map[string][]byte{}}
}

func (s *memoryBlobs) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (s *memoryBlobs) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, model.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryBlobs) Location() string {
	return "memory://blobs"
}

func (s *memoryBlobs) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok
}

// scriptedFetcher : источник с заранее заданными ответами и счётчиками вызовов
type scriptedFetcher struct {
	metadata     *model.Metadata
	metadataErrs []error
	file         *model.Payload
	fileErr      error
	preview      *model.Payload
	previewErr   error
	gate         chan struct{}

	metadataCalls atomic.Int64
	fileCalls     atomic.Int64
	previewCalls  atomic.Int64
}

func (f *scriptedFetcher) FetchMetadata(ctx context.Context, slug string, id int64) (*model.Metadata, error) {
	call := f.metadataCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if int(call) <= len(f.metadataErrs) && f.metadataErrs[call-1] != nil {
		return nil, f.metadataErrs[call-1]
	}
	metadata := *f.metadata
	metadata.ID = id
	return &metadata, nil
}

func (f *scriptedFetcher) FetchFile(ctx context.Context, id int64) (*model.Payload, error) {
	f.fileCalls.Add(1)
	if f.fileErr != nil {
		return nil, f.fileErr
	}
	return f.file, nil
}

func (f *scriptedFetcher) FetchPreview(ctx context.Context, id int64) (*model.Payload, error) {
	f.previewCalls.Add(1)
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	return f.preview, nil
}

// memoryCache : CacheRepository в памяти, хранит только CACHED
type memoryCache struct {
	mu        sync.Mutex
	documents map[int64]model.Document
}

func newMemoryCache() *memoryCache {
	return &memoryCache{documents: map[int64]model.Document{}}
}

func (c *memoryCache) SetDocument(ctx context.Context, document *model.Document) error {
	if document.State != model.StateCached {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.documents[document.ID] = *document
	return nil
}

func (c *memoryCache) GetDocument(ctx context.Context, id int64) (*model.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	document, ok := c.documents[id]
	if !ok {
		return nil, nil
	}
	return &document, nil
}

// heldLocker : блокировку держит другой экземпляр
type heldLocker struct{}

func (heldLocker) Acquire(ctx context.Context, id int64) (func(), bool, error) {
	return nil, false, nil
}
