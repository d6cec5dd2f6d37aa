package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"studydrive-downloader/config"
	"studydrive-downloader/internal/metrics"
	"studydrive-downloader/internal/model"
	"time"
)

// metadataEnvelope : ответ источника на запрос метаданных
type metadataEnvelope struct {
	Data struct {
		ID          int64  `json:"id"`
		Slug        string `json:"slug"`
		DisplayName string `json:"display_name"`
		UserName    string `json:"user_name"`
		Description string `json:"description"`
		CourseName  string `json:"course_name"`
		Uploaded    string `json:"uploaded"`
		Pages       *int   `json:"pages"`
		FileType    string `json:"file_type"`
		HasFile     *bool  `json:"has_file"`
		HasPreview  *bool  `json:"has_preview"`
	} `json:"data"`
}

// RemoteFetcher : тонкий слой между форматом источника и model.Metadata/model.Payload.
// Повторов здесь нет, ими управляет FetchOrchestrator.
type RemoteFetcher struct {
	client     *http.Client
	apiURL     string
	timeout    time.Duration
	maxPayload int64
	userAgent  string
}

func NewRemoteFetcher(cfg *config.SourceConfig, client *http.Client) *RemoteFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &RemoteFetcher{
		client:     client,
		apiURL:     strings.TrimSuffix(cfg.APIURL, "/"),
		timeout:    cfg.Timeout,
		maxPayload: cfg.MaxPayloadBytes,
		userAgent:  cfg.UserAgent,
	}
}

// FetchMetadata : GET {api}/documents/{id}?slug={slug}
func (f *RemoteFetcher) FetchMetadata(ctx context.Context, slug string, id int64) (*model.Metadata, error) {
	endpoint := fmt.Sprintf("%s/documents/%d?slug=%s", f.apiURL, id, url.QueryEscape(slug))

	body, _, err := f.get(ctx, "metadata", endpoint, false)
	if err != nil {
		return nil, err
	}

	var envelope metadataEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, f.observe("metadata", &model.RemoteError{Op: "metadata", Err: fmt.Errorf("ошибка разбора ответа: %w", err)})
	}
	data := envelope.Data
	if data.ID != 0 && data.ID != id {
		return nil, f.observe("metadata", &model.RemoteError{Op: "metadata", Err: fmt.Errorf("источник вернул документ %d вместо %d", data.ID, id)})
	}
	if data.Pages != nil && *data.Pages < 0 {
		data.Pages = nil
	}

	if data.Slug == "" {
		data.Slug = slug
	}

	return &model.Metadata{
		ID:          id,
		Slug:        data.Slug,
		Title:       data.DisplayName,
		User:        data.UserName,
		Description: data.Description,
		Course:      data.CourseName,
		Date:        data.Uploaded,
		Pages:       data.Pages,
		Type:        data.FileType,
		File:        model.FlagOf(data.HasFile),
		Preview:     model.FlagOf(data.HasPreview),
	}, nil
}

// FetchFile : GET {api}/documents/{id}/file, отсутствие файла - model.ErrAbsent
func (f *RemoteFetcher) FetchFile(ctx context.Context, id int64) (*model.Payload, error) {
	return f.payload(ctx, "file", fmt.Sprintf("%s/documents/%d/file", f.apiURL, id))
}

// FetchPreview : GET {api}/documents/{id}/preview, отсутствие превью - model.ErrAbsent
func (f *RemoteFetcher) FetchPreview(ctx context.Context, id int64) (*model.Payload, error) {
	return f.payload(ctx, "preview", fmt.Sprintf("%s/documents/%d/preview", f.apiURL, id))
}

func (f *RemoteFetcher) payload(ctx context.Context, op, endpoint string) (*model.Payload, error) {
	body, header, err := f.get(ctx, op, endpoint, true)
	if err != nil {
		return nil, err
	}

	return &model.Payload{
		Data:        body,
		ContentType: header.Get("Content-Type"),
		FileName:    dispositionFileName(header.Get("Content-Disposition")),
	}, nil
}

// get : один запрос к источнику с собственным дедлайном
func (f *RemoteFetcher) get(ctx context.Context, op, endpoint string, absentAllowed bool) ([]byte, http.Header, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, f.observe(op, &model.RemoteError{Op: op, Err: err})
	}
	req.Header.Set("User-Agent", f.userAgent)
	if op == "metadata" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, f.observe(op, &model.RemoteError{Op: op, Temporary: true, Err: err})
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case absentAllowed && (resp.StatusCode == http.StatusNotFound ||
		resp.StatusCode == http.StatusNoContent ||
		resp.StatusCode == http.StatusGone):
		metrics.RemoteCalls.WithLabelValues(op, "absent").Inc()
		return nil, nil, model.ErrAbsent
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, nil, f.observe(op, &model.RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Temporary:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Err:        fmt.Errorf("неожиданный ответ: %s", strings.TrimSpace(string(snippet))),
		})
	}

	reader := io.Reader(resp.Body)
	if f.maxPayload > 0 {
		reader = io.LimitReader(resp.Body, f.maxPayload+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, f.observe(op, &model.RemoteError{Op: op, Temporary: true, Err: err})
	}
	if f.maxPayload > 0 && int64(len(body)) > f.maxPayload {
		return nil, nil, f.observe(op, &model.RemoteError{Op: op, Err: fmt.Errorf("ответ больше %d байт", f.maxPayload)})
	}

	metrics.RemoteCalls.WithLabelValues(op, "ok").Inc()
	return body, resp.Header, nil
}

func (f *RemoteFetcher) observe(op string, err *model.RemoteError) error {
	outcome := "permanent"
	if errors.Is(err.Err, context.DeadlineExceeded) {
		outcome = "timeout"
		err.Temporary = true
	} else if err.Temporary {
		outcome = "temporary"
	}
	metrics.RemoteCalls.WithLabelValues(op, outcome).Inc()
	return err
}

func dispositionFileName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := params["filename"]
	if name == "" {
		return ""
	}
	return path.Base(name)
}
