// Package meta loads YAML and JSON resources through afs, expanding
// ${env.KEY} expressions before decoding.
package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// Service loads configuration resources relative to a base URL.
type Service struct {
	fs      afs.Service
	baseURL string
	options []storage.Option
}

// New creates a meta service.
func New(fs afs.Service, baseURL string, options ...storage.Option) *Service {
	if fs == nil {
		fs = afs.New()
	}
	return &Service{fs: fs, baseURL: baseURL, options: options}
}

// URL resolves a possibly relative location against the base URL.
func (s *Service) URL(location string) string {
	if s.baseURL == "" || strings.Contains(location, "://") || path.IsAbs(location) {
		return url.Normalize(location, file.Scheme)
	}
	return url.Join(s.baseURL, location)
}

// Download returns the expanded resource content.
func (s *Service) Download(ctx context.Context, location string) ([]byte, error) {
	URL := s.URL(location)
	data, err := s.fs.DownloadWithURL(ctx, URL, s.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to download %v: %w", URL, err)
	}
	return []byte(expandEnvExpr(string(data))), nil
}

// Load decodes the resource at location into target; .json resources are
// decoded as JSON, everything else as YAML.
func (s *Service) Load(ctx context.Context, location string, target interface{}) error {
	data, err := s.Download(ctx, location)
	if err != nil {
		return err
	}
	if strings.HasSuffix(strings.ToLower(location), ".json") {
		if err = json.Unmarshal(data, target); err != nil {
			return fmt.Errorf("failed to decode %v: %w", location, err)
		}
		return nil
	}
	if err = yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode %v: %w", location, err)
	}
	return nil
}

// Exists reports whether the resource exists.
func (s *Service) Exists(ctx context.Context, location string) (bool, error) {
	return s.fs.Exists(ctx, s.URL(location), s.options...)
}
