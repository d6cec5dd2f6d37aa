package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidReference     = errors.New("некорректная ссылка на документ")
	ErrNotFound             = errors.New("не найдено")
	ErrExpired              = errors.New("срок действия истёк")
	ErrStoreUnavailable     = errors.New("хранилище недоступно")
	ErrCachedRegression     = errors.New("нельзя вернуть документ в состояние Not cached")
	ErrFileNameWithoutCache = errors.New("file_name задаётся только вместе с терминальным cached")
	ErrNotFailed            = errors.New("документ не в состоянии FAILED")
	ErrTerminalState        = errors.New("документ уже в терминальном состоянии")
	ErrNoFile               = errors.New("у документа нет файла для скачивания")
	ErrAbsent               = errors.New("источник сообщил об отсутствии данных")
)

// RemoteError : ошибка обращения к источнику
type RemoteError struct {
	Op         string
	StatusCode int
	Temporary  bool
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("источник: %s: статус %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("источник: %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsTemporary : стоит ли повторять запрос
func IsTemporary(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.Temporary
}
