package requestresponse

import (
	"studydrive-downloader/internal/model"
	"time"
)

// SubmitDocumentRequest : ссылка на документ, вставленная пользователем
type SubmitDocumentRequest struct {
	URL string `json:"url" example:"https://www.studydrive.net/en/doc/algebra-notes/42"`
}

// DocumentStatusResponse : состояние скачивания и уже известные метаданные
type DocumentStatusResponse struct {
	Path        string `json:"path,omitempty" example:"/document/algebra-notes/42"`
	Slug        string `json:"slug,omitempty" example:"algebra-notes"`
	ID          int64  `json:"id" example:"42"`
	Status      string `json:"status" example:"METADATA_PENDING"`
	Failed      bool   `json:"failed" example:"false"`
	Failure     string `json:"failure,omitempty" example:"источник: metadata: статус 500"`
	Title       string `json:"title" example:"Algebra notes"`
	User        string `json:"user" example:"jane"`
	Description string `json:"description" example:"Lecture 1-12"`
	Course      string `json:"course" example:"Linear Algebra"`
	Date        string `json:"date" example:"2024-03-01"`
	Pages       *int   `json:"pages,omitempty" example:"12"`
	Type        string `json:"type" example:"Lecture notes"`
	File        string `json:"file" example:"present"`
	Preview     string `json:"preview" example:"present"`
	Cached      string `json:"cached" example:"Not cached"`
	FileName    string `json:"file_name,omitempty" example:"42-algebra-notes.pdf"`
}

// DocumentStatusFromModel : конвертирует model.PollResult в DocumentStatusResponse
func DocumentStatusFromModel(result *model.PollResult, ref *model.Reference) DocumentStatusResponse {
	doc := result.Document
	response := DocumentStatusResponse{
		ID:          doc.ID,
		Status:      string(result.Status),
		Failed:      result.Status == model.StateFailed,
		Failure:     doc.Failure,
		Title:       doc.Title,
		User:        doc.User,
		Description: doc.Description,
		Course:      doc.Course,
		Date:        doc.Date,
		Pages:       doc.Pages,
		Type:        doc.Type,
		File:        string(doc.File),
		Preview:     string(doc.Preview),
		Cached:      doc.Cached,
	}
	if doc.FileName != nil {
		response.FileName = *doc.FileName
	}
	if ref != nil {
		response.Path = ref.Path()
		response.Slug = ref.Slug
	}
	return response
}

// DownloadResponse : выданный токен на скачивание
type DownloadResponse struct {
	Token     string    `json:"token" example:"9f86d081884c7d659a2feaa0c55ad015"`
	URL       string    `json:"url" example:"/download/9f86d081884c7d659a2feaa0c55ad015/42-algebra-notes.pdf"`
	ExpiresAt time.Time `json:"expires_at" example:"2025-08-23T12:34:56Z"`
	Downloads int64     `json:"downloads" example:"1024"`
}

// StatsResponse : значение глобального счётчика скачиваний
type StatsResponse struct {
	Downloads int64 `json:"downloads" example:"1024"`
}

// ErrorResponse : стандартная структура ошибки
type ErrorResponse struct {
	Error   string `json:"error" example:"Not Found"`
	Message string `json:"message" example:"документ не найден"`
	Code    int    `json:"code" example:"404"`
}
