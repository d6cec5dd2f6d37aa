package util

import (
	"crypto/rand"
	"encoding/hex"
)

// DownloadTokenLength : длина токена скачивания в hex-символах
const DownloadTokenLength = 32

// GenerateRandomToken : генерирует случайный токен длиной length символов
func GenerateRandomToken(length int) (string, error) {
	byteLength := (length + 1) / 2 // т.к. hex кодирует 1 байт = 2 символа
	bytes := make([]byte, byteLength)

	_, err := rand.Read(bytes)
	if err != nil {
		return "", LogError("[util] ошибка генерации токена", err)
	}

	return hex.EncodeToString(bytes)[:length], nil
}
