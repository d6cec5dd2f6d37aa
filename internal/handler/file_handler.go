package handler

import (
	"errors"
	"fmt"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"io"
	"mime"
	"net/http"
	"strconv"
	"studydrive-downloader/internal/model"
	"studydrive-downloader/internal/ports"
)

const (
	downloadNotFound = "Download not found or expired."
	fileNotFound     = "File not found."
)

// FileHandler : отдача закэшированных файлов и превью
type FileHandler struct {
	ports.DocumentService
}

func NewFileHandler(documentService ports.DocumentService) *FileHandler {
	return &FileHandler{documentService}
}

// Download godoc
// @Summary Скачивание закэшированного файла по токену
// @Tags Files
// @Produce octet-stream
// @Param token path string true "Токен скачивания"
// @Param file_name path string true "Имя файла"
// @Success 200 {file} binary
// @Failure 404 {string} string "Download not found or expired."
// @Router /download/{token}/{file_name} [get]
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	fileName := chi.URLParam(r, "file_name")

	reader, contentType, err := h.DocumentService.OpenDownload(r.Context(), token, fileName)
	if err != nil {
		writeFileError(w, err, downloadNotFound)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("[FileHandler] ошибка отдачи файла %s: %v", fileName, err)
	}
}

// Preview godoc
// @Summary Превью закэшированного документа
// @Tags Files
// @Produce png
// @Param id path int true "ID документа"
// @Success 200 {file} binary
// @Failure 404 {string} string "File not found."
// @Router /preview/{id} [get]
func (h *FileHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, fileNotFound, http.StatusNotFound)
		return
	}

	reader, err := h.DocumentService.OpenPreview(r.Context(), id)
	if err != nil {
		writeFileError(w, err, fileNotFound)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%d.png", id))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("[FileHandler] ошибка отдачи превью %d: %v", id, err)
	}
}

func writeFileError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrExpired) {
		http.Error(w, notFound, http.StatusNotFound)
		return
	}
	log.WithError(err).Error("[FileHandler] внутренняя ошибка")
	http.Error(w, "Internal server error.", http.StatusInternalServerError)
}
