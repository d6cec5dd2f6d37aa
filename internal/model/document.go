package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// NotCached : значение-заглушка поля cached, пока документ не скачан
const NotCached = "Not cached"

// FetchState : состояние конвейера скачивания документа
type FetchState string

const (
	StateUnresolved      FetchState = "UNRESOLVED"
	StateMetadataPending FetchState = "METADATA_PENDING"
	StateMetadataReady   FetchState = "METADATA_READY"
	StateFilePending     FetchState = "FILE_PENDING"
	StateCached          FetchState = "CACHED"
	StateFailed          FetchState = "FAILED"
)

// Terminal : из CACHED и FAILED автоматических переходов нет
func (s FetchState) Terminal() bool {
	return s == StateCached || s == StateFailed
}

// Flag : тройное состояние наличия файла/превью у источника
type Flag string

const (
	FlagUnknown Flag = "unknown"
	FlagAbsent  Flag = "absent"
	FlagPresent Flag = "present"
)

// FlagOf : переводит ответ источника (nil = не сообщил) во Flag
func FlagOf(value *bool) Flag {
	switch {
	case value == nil:
		return FlagUnknown
	case *value:
		return FlagPresent
	default:
		return FlagAbsent
	}
}

func (f Flag) Value() (driver.Value, error) {
	if f == "" {
		return string(FlagUnknown), nil
	}
	return string(f), nil
}

func (f *Flag) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = FlagUnknown
	case string:
		*f = Flag(v)
	case []byte:
		*f = Flag(v)
	default:
		return fmt.Errorf("неподдерживаемый тип флага: %T", src)
	}
	switch *f {
	case FlagUnknown, FlagAbsent, FlagPresent:
		return nil
	}
	return fmt.Errorf("неизвестное значение флага: %q", *f)
}

type Document struct {
	ID          int64      `db:"id" json:"id"`
	URL         string     `db:"url" json:"url"`
	Title       string     `db:"title" json:"title"`
	User        string     `db:"user" json:"user"`
	Description string     `db:"description" json:"description"`
	Course      string     `db:"course" json:"course"`
	Date        string     `db:"date" json:"date"`
	Pages       *int       `db:"pages" json:"pages,omitempty"`
	Type        string     `db:"type" json:"type"`
	File        Flag       `db:"file" json:"file"`
	Preview     Flag       `db:"preview" json:"preview"`
	Cached      string     `db:"cached" json:"cached"`
	FileName    *string    `db:"file_name" json:"file_name,omitempty"`
	State       FetchState `db:"state" json:"state"`
	Failure     string     `db:"failure" json:"failure,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// NewPendingDocument : предварительная запись, создаваемая при первом запросе документа
func NewPendingDocument(ref Reference) *Document {
	return &Document{
		ID:      ref.ID,
		URL:     ref.URL,
		File:    FlagUnknown,
		Preview: FlagUnknown,
		Cached:  NotCached,
		State:   StateMetadataPending,
	}
}

// ApplyMetadata : переносит метаданные источника в документ
func (d *Document) ApplyMetadata(meta *Metadata) {
	d.Title = meta.Title
	d.User = meta.User
	d.Description = meta.Description
	d.Course = meta.Course
	d.Date = meta.Date
	d.Pages = meta.Pages
	d.Type = meta.Type
	if d.File == FlagUnknown || d.File == "" {
		d.File = meta.File
	}
	if d.Preview == FlagUnknown || d.Preview == "" {
		d.Preview = meta.Preview
	}
}

func (d *Document) IsCached() bool {
	return d.Cached != "" && d.Cached != NotCached
}

func (d *Document) HasFile() bool {
	return d.FileName != nil && *d.FileName != ""
}

// Metadata : метаданные документа, полученные от источника
type Metadata struct {
	ID          int64
	Slug        string
	Title       string
	User        string
	Description string
	Course      string
	Date        string
	Pages       *int
	Type        string
	File        Flag
	Preview     Flag
}

// Payload : содержимое файла или превью, скачанное у источника
type Payload struct {
	Data        []byte
	ContentType string
	FileName    string
}

// PollResult : то, что видит опрашивающий клиент
type PollResult struct {
	Status   FetchState
	Document *Document
}
