// Package documents tracks the documents the backend has indexed.
package documents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mikeboe/agentsmith/pkg/api"
)

// Gateway is the part of the backend client the registry needs.
type Gateway interface {
	UploadDocument(ctx context.Context, filename string, r io.Reader) (*api.UploadResponse, error)
	ListDocuments(ctx context.Context) (*api.DocumentInfo, error)
	ClearDocuments(ctx context.Context) error
}

// State is a copy of the registry contents. Snapshot is nil until the first
// successful refresh and after Clear.
type State struct {
	Snapshot  *api.DocumentInfo
	Uploading bool
}

// HasDocuments reports whether the snapshot lists at least one document.
func (s State) HasDocuments() bool {
	return s.Snapshot != nil && len(s.Snapshot.Documents) > 0
}

// Registry holds the latest document snapshot. Snapshots are replaced
// wholesale, never merged.
type Registry struct {
	gateway Gateway

	mu       sync.Mutex
	snapshot *api.DocumentInfo
	// uploads counts uploads in flight; they are not serialized.
	uploads int
	// issued and applied order refreshes so a slow response cannot
	// overwrite a newer one.
	issued  uint64
	applied uint64

	Logger   *slog.Logger
	OnChange func(state State)
}

func NewRegistry(gateway Gateway) *Registry {
	return &Registry{
		gateway: gateway,
		Logger:  slog.Default(),
	}
}

// Refresh fetches the snapshot and replaces local state. Failures are logged
// and otherwise ignored.
func (r *Registry) Refresh(ctx context.Context) {
	if err := r.Reload(ctx); err != nil {
		r.Logger.Warn("Error fetching documents", "error", err)
	}
}

// Reload is Refresh for callers that need to know the fetch failed. The
// snapshot is left untouched on error.
func (r *Registry) Reload(ctx context.Context) error {
	r.mu.Lock()
	r.issued++
	token := r.issued
	r.mu.Unlock()

	info, err := r.gateway.ListDocuments(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if token <= r.applied {
		r.mu.Unlock()
		r.Logger.Debug("Discarding stale document snapshot", "token", token, "applied", r.applied)
		return nil
	}
	r.applied = token
	r.snapshot = cloneInfo(info)
	r.mu.Unlock()
	r.notify()
	return nil
}

// Upload sends one document to the backend and refreshes the snapshot once
// it has been processed. The backend's error detail is returned on failure.
func (r *Registry) Upload(ctx context.Context, filename string, content io.Reader) (*api.UploadResponse, error) {
	r.mu.Lock()
	r.uploads++
	r.mu.Unlock()
	r.notify()

	defer func() {
		r.mu.Lock()
		r.uploads--
		r.mu.Unlock()
		r.notify()
	}()

	r.Logger.Info("Uploading document", "filename", filename)
	resp, err := r.gateway.UploadDocument(ctx, filename, content)
	if err != nil {
		r.Logger.Error("Error uploading document", "filename", filename, "error", err)
		return nil, err
	}

	r.Refresh(ctx)
	r.Logger.Info("Document uploaded", "filename", resp.Filename, "pages", resp.Pages, "chunks", resp.Chunks)
	return resp, nil
}

// UploadFile uploads the file at path under its base name.
func (r *Registry) UploadFile(ctx context.Context, path string) (*api.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return r.Upload(ctx, filepath.Base(path), f)
}

// Clear deletes every document on the backend and then drops the local
// snapshot. When the delete fails the local snapshot is left untouched.
func (r *Registry) Clear(ctx context.Context) error {
	if err := r.gateway.ClearDocuments(ctx); err != nil {
		r.Logger.Error("Error clearing documents", "error", err)
		return err
	}

	r.mu.Lock()
	r.snapshot = nil
	// Refreshes issued before the delete must not resurrect the old snapshot.
	r.applied = r.issued
	r.mu.Unlock()
	r.notify()
	return nil
}

// Snapshot returns a copy of the current snapshot, or nil.
func (r *Registry) Snapshot() *api.DocumentInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneInfo(r.snapshot)
}

func (r *Registry) Uploading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uploads > 0
}

func (r *Registry) HasDocuments() bool {
	return r.State().HasDocuments()
}

func (r *Registry) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{
		Snapshot:  cloneInfo(r.snapshot),
		Uploading: r.uploads > 0,
	}
}

func (r *Registry) notify() {
	if r.OnChange != nil {
		r.OnChange(r.State())
	}
}

func cloneInfo(info *api.DocumentInfo) *api.DocumentInfo {
	if info == nil {
		return nil
	}
	docs := make([]string, len(info.Documents))
	copy(docs, info.Documents)
	return &api.DocumentInfo{
		TotalChunks: info.TotalChunks,
		Documents:   docs,
	}
}
