package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
)

// FileBlobStore - каждый ключ хранится в файле <dir>/<key>.json
type FileBlobStore struct {
	dir string
}

func NewFileBlobStore(dir string) *FileBlobStore {
	return &FileBlobStore{dir: dir}
}

func (s *FileBlobStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileBlobStore) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Save пишет во временный файл и переименовывает, чтобы не оставить половину JSON
func (s *FileBlobStore) Save(_ context.Context, key string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), s.path(key))
}

// RedisBlobStore - коллекция как одна строка в Redis, без TTL
type RedisBlobStore struct {
	client *redis.Client
	prefix string
}

func NewRedisBlobStore(client *redis.Client, prefix string) *RedisBlobStore {
	return &RedisBlobStore{client: client, prefix: prefix}
}

func (s *RedisBlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *RedisBlobStore) Save(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
