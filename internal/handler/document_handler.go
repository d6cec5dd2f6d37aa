package handler

import (
	"encoding/json"
	"errors"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"net/http"
	"strconv"
	requestresponse "studydrive-downloader/internal/model/requestresponse"
	"studydrive-downloader/internal/model"
	"studydrive-downloader/internal/ports"
	"studydrive-downloader/internal/util"
)

type DocumentHandler struct {
	ports.DocumentService
}

func NewDocumentHandler(documentService ports.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService}
}

// SubmitDocument godoc
// @Summary Запрос документа по ссылке
// @Description Проверяет ссылку на документ и запускает скачивание в фоне. Ответ сразу, без ожидания скачивания.
// @Tags Documents
// @Accept json
// @Produce json
// @Param request body requestresponse.SubmitDocumentRequest true "Ссылка на документ"
// @Param Authorization header string false "Bearer токен" default(Bearer <service_token>)
// @Success 202 {object} requestresponse.DocumentStatusResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректная ссылка"
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents [post]
func (h *DocumentHandler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	var request requestresponse.SubmitDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		util.HandleError(w, "неверный формат запроса", http.StatusBadRequest)
		return
	}

	ref, result, err := h.DocumentService.Submit(r.Context(), request.URL)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusAccepted, requestresponse.DocumentStatusFromModel(result, ref))
}

// FetchDocument godoc
// @Summary Запрос документа по паре slug/id
// @Tags Documents
// @Produce json
// @Param slug path string true "Slug документа"
// @Param id path int true "ID документа"
// @Param Authorization header string false "Bearer токен" default(Bearer <service_token>)
// @Success 202 {object} requestresponse.DocumentStatusResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents/{slug}/{id} [put]
func (h *DocumentHandler) FetchDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	ref, result, err := h.DocumentService.Fetch(r.Context(), chi.URLParam(r, "slug"), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusAccepted, requestresponse.DocumentStatusFromModel(result, ref))
}

// GetDocument godoc
// @Summary Состояние скачивания документа
// @Description Чистое чтение: никогда не ждёт скачивания. Ошибка скачивания видна как status=FAILED.
// @Tags Documents
// @Produce json
// @Param id path int true "ID документа"
// @Param Authorization header string false "Bearer токен" default(Bearer <service_token>)
// @Success 200 {object} requestresponse.DocumentStatusResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents/{id} [get]
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	result, err := h.DocumentService.Poll(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.DocumentStatusFromModel(result, nil))
}

// GetDocumentHead godoc
// @Summary Состояние скачивания документа (только заголовки)
// @Tags Documents
// @Param id path int true "ID документа"
// @Success 200 "Состояние в заголовке X-Document-Status"
// @Failure 404 "Документ неизвестен"
// @Router /api/documents/{id} [head]
func (h *DocumentHandler) GetDocumentHead(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	result, err := h.DocumentService.Poll(r.Context(), id)
	if err != nil {
		w.WriteHeader(statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Document-Status", string(result.Status))
	w.WriteHeader(http.StatusOK)
}

// ResetDocument godoc
// @Summary Повторная попытка для документа в FAILED
// @Tags Documents
// @Produce json
// @Param slug path string true "Slug документа"
// @Param id path int true "ID документа"
// @Param Authorization header string false "Bearer токен" default(Bearer <service_token>)
// @Success 202 {object} requestresponse.DocumentStatusResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse "Документ не в состоянии FAILED"
// @Router /api/documents/{slug}/{id}/reset [post]
func (h *DocumentHandler) ResetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	ref, result, err := h.DocumentService.Reset(r.Context(), chi.URLParam(r, "slug"), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusAccepted, requestresponse.DocumentStatusFromModel(result, ref))
}

// StartDownload godoc
// @Summary Токен на скачивание закэшированного файла
// @Description Увеличивает глобальный счётчик скачиваний и выдаёт короткоживущую ссылку.
// @Tags Downloads
// @Produce json
// @Param id path int true "ID документа"
// @Param Authorization header string false "Bearer токен" default(Bearer <service_token>)
// @Success 201 {object} requestresponse.DownloadResponse
// @Failure 404 {object} requestresponse.ErrorResponse "Документ не закэширован или без файла"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents/{id}/downloads [post]
func (h *DocumentHandler) StartDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	ticket, err := h.DocumentService.StartDownload(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusCreated, requestresponse.DownloadResponse{
		Token:     ticket.Token.ID,
		URL:       ticket.URL,
		ExpiresAt: ticket.Token.Expires,
		Downloads: ticket.Count,
	})
}

// GetStats godoc
// @Summary Глобальный счётчик скачиваний
// @Tags Downloads
// @Produce json
// @Success 200 {object} requestresponse.StatsResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/stats [get]
func (h *DocumentHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	count, err := h.DocumentService.DownloadCount(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.StatsResponse{Downloads: count})
}

func documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		util.HandleError(w, "некорректный id документа", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrExpired),
		errors.Is(err, model.ErrNoFile):
		return http.StatusNotFound
	case errors.Is(err, model.ErrNotFailed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError : внутренние ошибки наружу не отдаются
func writeServiceError(w http.ResponseWriter, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		log.WithError(err).Error("[DocumentHandler] внутренняя ошибка")
		util.HandleError(w, "внутренняя ошибка сервера", code)
		return
	}
	util.HandleError(w, err.Error(), code)
}
