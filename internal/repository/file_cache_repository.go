package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"studydrive-downloader/internal/model"
	"studydrive-downloader/internal/util"
)

// FileCacheRepository : кэш файлов и превью в локальной директории
type FileCacheRepository struct {
	dir string
}

func NewFileCacheRepository(dir string) (*FileCacheRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, util.LogError("[FileCache] ошибка создания директории кэша", err)
	}
	return &FileCacheRepository{dir: dir}, nil
}

// Put : пишет во временный файл и переименовывает, чтобы читатель не увидел половину файла
func (r *FileCacheRepository) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := r.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return util.LogError("[FileCache] ошибка создания директории", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return util.LogError("[FileCache] ошибка создания временного файла", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return util.LogError("[FileCache] ошибка записи файла", err)
	}
	// данные должны лечь на диск раньше, чем документ станет CACHED
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return util.LogError("[FileCache] ошибка сброса файла на диск", err)
	}
	if err := tmp.Close(); err != nil {
		return util.LogError("[FileCache] ошибка закрытия файла", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return util.LogError("[FileCache] ошибка переименования файла", err)
	}
	return nil
}

func (r *FileCacheRepository) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := r.path(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, model.ErrNotFound
	} else if err != nil {
		return nil, util.LogError("[FileCache] ошибка открытия файла", err)
	}
	return file, nil
}

func (r *FileCacheRepository) Location() string {
	return "file://" + filepath.ToSlash(r.dir)
}

// path : ключ не должен выводить за пределы директории кэша
func (r *FileCacheRepository) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("[FileCache] недопустимый ключ %q: %w", key, model.ErrNotFound)
	}
	return filepath.Join(r.dir, clean), nil
}
