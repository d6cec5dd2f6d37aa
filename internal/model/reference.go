package model

import "fmt"

// Reference : нормализованная ссылка на документ источника
type Reference struct {
	Slug string
	ID   int64
	URL  string
}

// Path : путь страницы документа у коллаборатора
func (r Reference) Path() string {
	return fmt.Sprintf("/document/%s/%d", r.Slug, r.ID)
}
