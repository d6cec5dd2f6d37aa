package model

import "time"

// DownloadCounterName : ключ глобального счётчика скачиваний
const DownloadCounterName = "downloads"

type Counter struct {
	ID    string `db:"id"`
	Count int64  `db:"count"`
}

// DownloadToken : короткоживущий токен на скачивание закэшированного файла
type DownloadToken struct {
	ID         string    `db:"id" json:"id"`
	DocumentID int64     `db:"document_id" json:"document_id"`
	Expires    time.Time `db:"expires" json:"expires"`
}

// ValidAt : токен действителен строго до момента expires
func (t *DownloadToken) ValidAt(now time.Time) bool {
	return now.Before(t.Expires)
}

// DownloadTicket : выданный токен вместе с адресом скачивания
type DownloadTicket struct {
	Token    *DownloadToken
	FileName string
	URL      string
	Count    int64
}
