// Package fs stores saved contexts as JSON files on any afs supported
// storage (local file system, mem://, cloud buckets).
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"

	"github.com/juicer-platform/cortex/service/contextstore"
	"github.com/juicer-platform/cortex/service/dao"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// Service implements a file based saved-context DAO
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
}

var _ dao.Service[string, contextstore.Record] = (*Service)(nil)

// Save persists a record
func (s *Service) Save(ctx context.Context, record *contextstore.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	if record.ID == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.recordURL(record.ID)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save context to %s: %w", URL, err)
	}
	return nil
}

// Load retrieves a record or dao.ErrNotFound
func (s *Service) Load(ctx context.Context, id string) (*contextstore.Record, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	URL := s.recordURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check context %v: %w", id, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read context %v: %w", id, err)
	}
	record := &contextstore.Record{}
	if err = json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context %v: %w", id, err)
	}
	return record, nil
}

// Delete removes a record
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.recordURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check context %v: %w", id, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	return s.fs.Delete(ctx, URL)
}

// List returns all stored records; unreadable files are skipped.
func (s *Service) List(ctx context.Context) ([]*contextstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list contexts: %w", err)
	}
	var ret []*contextstore.Record
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			log.Printf("failed to read context %s: %v", object.URL(), err)
			continue
		}
		record := &contextstore.Record{}
		if err := json.Unmarshal(data, record); err != nil {
			log.Printf("failed to unmarshal context %s: %v", object.URL(), err)
			continue
		}
		ret = append(ret, record)
	}
	return ret, nil
}

func (s *Service) recordURL(id string) string {
	return url.Join(s.baseURL, path.Clean(id)+".json")
}

// New creates a file based DAO rooted at baseURL, creating it when missing.
func New(ctx context.Context, fs afs.Service, baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	baseURL = url.Normalize(baseURL, file.Scheme)
	exists, _ := fs.Exists(ctx, baseURL)
	if !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create %v: %w", baseURL, err)
		}
	}
	return &Service{baseURL: baseURL, fs: fs}, nil
}
