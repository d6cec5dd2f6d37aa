package service_test

import (
	"context"
	"errors"
	"io"
	"studydrive-downloader/internal/model"
	"studydrive-downloader/internal/service"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const downloadTTL = 10 * time.Minute

type documentServiceFixture struct {
	service      *service.DocumentService
	orchestrator *MockOrchestrator
	documents    *MockDocumentRepository
	counter      *MockCounterRepository
	downloads    *MockDownloadRepository
	blobs        *memoryBlobs
}

// ===== Функция для создания сервиса с моками =====
func newTestDocumentService() *documentServiceFixture {
	f := &documentServiceFixture{
		orchestrator: new(MockOrchestrator),
		documents:    new(MockDocumentRepository),
		counter:      new(MockCounterRepository),
		downloads:    new(MockDownloadRepository),
		blobs:        newMemoryBlobs(),
	}
	resolver := service.NewReferenceResolver("https://www.studydrive.net", []string{"studydrive.net"})
	f.service = service.NewDocumentService(resolver, f.orchestrator, f.documents, f.counter, f.downloads, f.blobs, &fakeTx{}, downloadTTL, time.Minute)
	return f
}

// expectTx : BeginTX с фиксацией того, чем закончилась транзакция
func (f *documentServiceFixture) expectTx(ctx context.Context) (*fakeTx, *bool, *bool) {
	tx := &fakeTx{}
	committed, rolledBack := new(bool), new(bool)
	f.documents.On("BeginTX", ctx).Return(tx,
		func() error {
			if !*committed {
				*rolledBack = true
			}
			return nil
		},
		func() error {
			*committed = true
			return nil
		},
		nil)
	return tx, committed, rolledBack
}

func cachedDocument(fileName string) *model.Document {
	document := &model.Document{
		ID:      42,
		Title:   "Algebra notes",
		File:    model.FlagPresent,
		Preview: model.FlagPresent,
		Cached:  "memory://blobs",
		State:   model.StateCached,
	}
	if fileName != "" {
		document.FileName = &fileName
	}
	return document
}

// ===== Тесты Submit / Fetch / Reset =====

func TestSubmit_Success(t *testing.T) {
	f := newTestDocumentService()
	ctx := context.Background()

	pending := &model.PollResult{Status: model.StateMetadataPending, Document: &model.Document{ID: 42}}
	f.orchestrator.On("Request", ctx, model.Reference{
		Slug: "algebra-notes",
		ID:   42,
		URL:  "https://www.studydrive.net/en/doc/algebra-notes/42",
	}).Return(pending, nil)

	ref, result, err := f.service.Submit(ctx, "https://www.studydrive.net/en/doc/algebra-notes/42?utm=x")
	require.NoError(t, err)
	assert.Equal(t, "/document/algebra-notes/42", ref.Path())
	assert.Equal(t, model.StateMetadataPending, result.Status)
	f.orchestrator.AssertExpectations(t)
}

func TestSubmit_InvalidReferenceNoIO(t *testing.T) {
	f := newTestDocumentService()

	_, _, err := f.service.Submit(context.Background(), "https://example.com/doc/algebra-notes/42")
	assert.ErrorIs(t, err, model.ErrInvalidReference)
	f.orchestrator.AssertNotCalled(t, "Request", mock.Anything, mock.Anything)
}

func TestFetch_ValidatesPair(t *testing.T) {
	f := newTestDocumentService()
	ctx := context.Background()

	_, _, err := f.service.Fetch(ctx, "algebra notes", 42)
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	f.orchestrator.On("Request", ctx, mock.MatchedBy(func(ref model.Reference) bool {
		return ref.ID == 42 && ref.Slug == "algebra-notes"
	})).Return(&model.PollResult{Status: model.StateCached, Document: cachedDocument("42-algebra.pdf")}, nil)

	ref, result, err := f.service.Fetch(ctx, "algebra-notes", 42)
	require.NoError(t, err)
	assert.Equal(t, "https://www.studydrive.net/doc/algebra-notes/42", ref.URL)
	assert.Equal(t, model.StateCached, result.Status)
}

func TestReset_PropagatesNotFailed(t *testing.T) {
	f := newTestDocumentService()
	ctx := context.Background()

	f.orchestrator.On("Reset", ctx, mock.Anything).Return(nil, model.ErrNotFailed)

	_, _, err := f.service.Reset(ctx, "algebra-notes", 42)
	assert.ErrorIs(t, err, model.ErrNotFailed)
}

// ===== Тесты StartDownload =====

func TestStartDownload_Success(t *testing.T) {
	f := newTestDocumentService()
	ctx := context.Background()
	expires := time.Date(2025, 8, 23, 12, 0, 0, 0, time.UTC)

	f.orchestrator.On("Poll", ctx, int64(42)).Return(&model.PollResult{Status: model.StateCached, Document: cachedDocument("42-algebra notes.pdf")}, nil)
	tx, committed, rolledBack := f.expectTx(ctx)
	f.downloads.On("Issue", ctx, tx, int64(42), downloadTTL).Return(&model.DownloadToken{ID: "abc", DocumentID: 42, Expires: expires}, nil)
	f.counter.On("Increment", ctx, tx, model.DownloadCounterName).Return(int64(1025), nil)

	ticket, err := f.service.StartDownload(ctx, 42)
	require.NoError(t, err)
	assert.True(t, *committed)
	assert.False(t, *rolledBack)
	assert.Equal(t, "abc", ticket.Token.ID)
	assert.Equal(t, "/download/abc/42-algebra%20notes.pdf", ticket.URL)
	assert.Equal(t, int64(1025), ticket.Count)

	// значение счётчика берётся из кэша, без запроса к БД
	count, err := f.service.DownloadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1025), count)
	f.counter.AssertNotCalled(t, "Read", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartDownload_NotCached(t *testing.T) {
	f := newTestDocumentService()
	ctx := context.Background()

	f.orchestrator.On("Poll", ctx, int64(42)).Return(&model.PollResult{Status: model.StateFilePending, Document: &model.Document{ID: 42}}, nil)

	_, err := f.service.StartDownload(ctx, 42)
	assert.ErrorIs(t, err, model.ErrNotFound)
	f.counter.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartDownload_NoFile(t *testing.T) {
	f := newTestDocumentService()
	ctx := context.Background()

	f.orchestrator.On("Poll", ctx, int64(42)).Return(&model.PollResult{Status: model.StateCached, Document: cachedDocument("")}, nil)

	_, err := f.service.StartDownload(ctx, 42)
	assert.ErrorIs(t, err, model.ErrNoFile)
	f.downloads.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStartDownload_CounterFailureRollsBackToken(t *testing.T) {
	f := newTestDocumentService()
	ctx := context.Background()

	f.orchestrator.On("Poll", ctx, int64(42)).Return(&model.PollResult{Status: model.StateCached, Document: cachedDocument("42-algebra.pdf")}, nil)
	tx, committed, rolledBack := f.expectTx(ctx)
	f.downloads.On("Issue", ctx, tx, int64(42), downloadTTL).Return(&model.DownloadToken{ID: "abc", DocumentID: 42}, nil)
	f.counter.On("Increment", ctx, tx, model.DownloadCounterName).Return(int64(0), model.ErrStoreUnavailable)

	_, err := f.service.StartDownload(ctx, 42)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.False(t, *committed)
	assert.True(t, *rolledBack)
	f.downloads.AssertExpectations(t)
}

func TestStartDownload_ConcurrentIncrements(t *testing.T) {
	orchestrator := new(MockOrchestrator)
	downloads := new(MockDownloadRepository)
	counter := &memoryCounter{}
	counter.value.Store(100)

	orchestrator.On("Poll", mock.Anything, int64(42)).Return(&model.PollResult{Status: model.StateCached, Document: cachedDocument("42-algebra.pdf")}, nil)
	downloads.On("Issue", mock.Anything, mock.Anything, int64(42), downloadTTL).Return(&model.DownloadToken{ID: "abc", DocumentID: 42}, nil)

	resolver := service.NewReferenceResolver("https://www.studydrive.net", []string{"studydrive.net"})
	svc := service.NewDocumentService(resolver, orchestrator, newMemoryDocuments(), counter, downloads, newMemoryBlobs(), &fakeTx{}, downloadTTL, time.Minute)

	const downloaders = 50
	var wg sync.WaitGroup
	seen := sync.Map{}
	for i := 0; i < downloaders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := svc.StartDownload(context.Background(), 42)
			if assert.NoError(t, err) {
				_, duplicate := seen.LoadOrStore(ticket.Count, true)
				assert.False(t, duplicate)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100+downloaders), counter.value.Load())
}

// ===== Тесты OpenDownload / OpenPreview =====

func TestOpenDownload_Success(t *testing.T) {
	f := newTestDocumentService()
	ctx := context.Background()
	require.NoError(t, f.blobs.Put(ctx, "files/42-algebra.pdf", []byte("%PDF")))

	f.downloads.On("Redeem", ctx, mock.Anything, "abc").Return(int64(42), nil)
	f.documents.On("Get", ctx, mock.Anything, int64(42)).Return(cachedDocument("42-algebra.pdf"), nil)

	reader, contentType, err := f.service.OpenDownload(ctx, "abc", "42-algebra.pdf")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
	assert.Equal(t, "application/pdf", contentType)
}

func TestOpenDownload_Expired(t *testing.T) {
	f := newTestDocumentService()
	ctx := context.Background()

	f.downloads.On("Redeem", ctx, mock.Anything, "abc").Return(int64(0), model.ErrExpired)

	_, _, err := f.service.OpenDownload(ctx, "abc", "42-algebra.pdf")
	assert.ErrorIs(t, err, model.ErrExpired)
	f.documents.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestOpenDownload_WrongFileName(t *testing.T) {
	f := newTestDocumentService()
	ctx := context.Background()

	f.downloads.On("Redeem", ctx, mock.Anything, "abc").Return(int64(42), nil)
	f.documents.On("Get", ctx, mock.Anything, int64(42)).Return(cachedDocument("42-algebra.pdf"), nil)

	_, _, err := f.service.OpenDownload(ctx, "abc", "other.pdf")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestOpenPreview(t *testing.T) {
	f := newTestDocumentService()
	ctx := context.Background()
	require.NoError(t, f.blobs.Put(ctx, "previews/42.png", []byte("png")))

	reader, err := f.service.OpenPreview(ctx, 42)
	require.NoError(t, err)
	reader.Close()

	_, err = f.service.OpenPreview(ctx, 7)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

// ===== Тесты DownloadCount =====

func TestDownloadCount_CachedRead(t *testing.T) {
	f := newTestDocumentService()
	ctx := context.Background()

	f.counter.On("Read", ctx, mock.Anything, model.DownloadCounterName).Return(int64(7), nil).Once()

	for i := 0; i < 3; i++ {
		count, err := f.service.DownloadCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(7), count)
	}
	f.counter.AssertExpectations(t)
}

func TestDownloadCount_StoreUnavailable(t *testing.T) {
	f := newTestDocumentService()
	ctx := context.Background()

	f.counter.On("Read", ctx, mock.Anything, model.DownloadCounterName).Return(int64(0), errors.New("db down"))

	_, err := f.service.DownloadCount(ctx)
	assert.Error(t, err)
}
