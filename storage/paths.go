// Package storage provides the raw content stores backing the URL
// existence check: a local filesystem layout and an S3-compatible remote.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"atlas/types"
)

// typeDirs maps each content type to its storage directory name.
var typeDirs = map[types.ContentType]string{
	types.ContentTypeArticle:    "articles",
	types.ContentTypeYouTube:    "youtube",
	types.ContentTypePodcast:    "podcasts",
	types.ContentTypeInstapaper: "instapaper",
	types.ContentTypeDocument:   "documents",
}

// FileStore lays content out on local disk under one root directory, one
// subdirectory per content type, one JSON file per item named by its uid.
type FileStore struct {
	root string
}

// NewFileStore creates the store and its per-type directories.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("content root cannot be empty")
	}
	for _, dir := range typeDirs {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create content directory %s: %w", dir, err)
		}
	}
	return &FileStore{root: root}, nil
}

// Path returns where content fetched from url would live for the given
// content type.
func (s *FileStore) Path(contentType types.ContentType, url string) string {
	return filepath.Join(s.root, typeDirs[contentType], types.GenerateUID(url)+".json")
}

// Exists reports whether content for the url is already stored under any
// content-type directory.
func (s *FileStore) Exists(url string) (bool, error) {
	if url == "" {
		return false, nil
	}
	name := types.GenerateUID(url) + ".json"
	for _, dir := range typeDirs {
		_, err := os.Stat(filepath.Join(s.root, dir, name))
		if err == nil {
			return true, nil
		}
		if !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to probe %s/%s: %w", dir, name, err)
		}
	}
	return false, nil
}

// Remove deletes stored content for the url wherever it lives. Missing
// files are not an error.
func (s *FileStore) Remove(url string) error {
	name := types.GenerateUID(url) + ".json"
	for _, dir := range typeDirs {
		path := filepath.Join(s.root, dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}
