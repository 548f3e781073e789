/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/shadowpay/shadowpay/internal/apierror"
	"github.com/shadowpay/shadowpay/model"
)

// FileStore keeps every link in one JSON object keyed by link ID. It is the
// local fallback when no database is configured and serves a single process.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("links file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) load() (map[string]model.Link, error) {
	links := map[string]model.Link{}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return links, nil
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read links file", err)
	}
	if len(data) == 0 {
		return links, nil
	}
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Links file is corrupt", err)
	}
	return links, nil
}

// save writes to a temp file in the same directory and renames it over the
// original, so readers never see a partial file.
func (f *FileStore) save(links map[string]model.Link) error {
	data, err := json.MarshalIndent(links, "", "  ")
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to encode links", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to write links file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to write links file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to write links file", err)
	}
	if err := tmp.Close(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to write links file", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to write links file", err)
	}
	return nil
}

func (f *FileStore) CreateLink(_ context.Context, link *model.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	links, err := f.load()
	if err != nil {
		return err
	}
	if _, exists := links[link.LinkID]; exists {
		return apierror.NewAPIError(apierror.ErrConflict, "Link already exists", nil)
	}
	links[link.LinkID] = *link
	return f.save(links)
}

func (f *FileStore) GetLinkByID(_ context.Context, id string) (*model.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	links, err := f.load()
	if err != nil {
		return nil, err
	}
	link, ok := links[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Link not found", nil)
	}
	return &link, nil
}

func (f *FileStore) GetLinksByCreator(ctx context.Context, creatorID string) ([]model.Link, error) {
	all, err := f.GetAllLinks(ctx)
	if err != nil {
		return nil, err
	}
	links := []model.Link{}
	for _, l := range all {
		if l.CreatorID == creatorID {
			links = append(links, l)
		}
	}
	return links, nil
}

func (f *FileStore) GetAllLinks(_ context.Context) ([]model.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	byID, err := f.load()
	if err != nil {
		return nil, err
	}
	links := make([]model.Link, 0, len(byID))
	for _, l := range byID {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
	return links, nil
}

func (f *FileStore) MarkLinkPaid(_ context.Context, id string, p model.Payment) (*model.Link, error) {
	return f.update(id, "Already paid", func(l *model.Link) error { return l.ApplyPayment(p) })
}

func (f *FileStore) MarkLinkWithdrawn(_ context.Context, id string, w model.Withdrawal) (*model.Link, error) {
	return f.update(id, "Not withdrawable", func(l *model.Link) error { return l.ApplyWithdrawal(w) })
}

// update applies a transition under the store lock; a rejected transition is a
// state conflict and nothing is written.
func (f *FileStore) update(id, conflict string, apply func(*model.Link) error) (*model.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	links, err := f.load()
	if err != nil {
		return nil, err
	}
	link, ok := links[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Link not found", nil)
	}
	if err := apply(&link); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrStateConflict, conflict, err)
	}
	links[id] = link
	if err := f.save(links); err != nil {
		return nil, err
	}
	return &link, nil
}
