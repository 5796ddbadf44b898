package handlers

import (
	"context"
	"io"
	"sync"

	"github.com/vidcast/vidcast/internal/models"
	"github.com/vidcast/vidcast/internal/storage"
)

type objectStoreStub struct {
	mu          sync.Mutex
	saved       map[string][]byte
	contentType map[string]string
	err         error
	statErr     error
}

func newObjectStoreStub() *objectStoreStub {
	return &objectStoreStub{saved: make(map[string][]byte), contentType: make(map[string]string)}
}

func (s *objectStoreStub) Save(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[key] = data
	s.contentType[key] = contentType
	return s.PublicURL(key), nil
}

func (s *objectStoreStub) Stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	if s.statErr != nil {
		return storage.ObjectInfo{}, s.statErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.saved[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Size: int64(len(data)), ContentType: s.contentType[key]}, nil
}

func (s *objectStoreStub) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

type videoStoreStub struct {
	created   []models.VideoRecord
	createErr error
	records   map[string]models.VideoRecord
	findErr   error
}

func (s *videoStoreStub) Create(ctx context.Context, record models.VideoRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, record)
	return nil
}

func (s *videoStoreStub) FindByID(ctx context.Context, assetID string) (models.VideoRecord, error) {
	if s.findErr != nil {
		return models.VideoRecord{}, s.findErr
	}
	return s.records[assetID], nil
}

type verifierStub struct {
	enqueued []string
	err      error
}

func (v *verifierStub) Enqueue(ctx context.Context, assetID string) error {
	v.enqueued = append(v.enqueued, assetID)
	return v.err
}

type limiterStub struct {
	allow bool
	keys  []string
}

func (l *limiterStub) Allow(key string) bool {
	l.keys = append(l.keys, key)
	return l.allow
}
