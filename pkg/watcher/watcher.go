// Package watcher uploads PDFs that appear in a folder.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mikeboe/agentsmith/pkg/api"
)

const DefaultSettle = 500 * time.Millisecond

// Uploader is satisfied by documents.Registry.
type Uploader interface {
	UploadFile(ctx context.Context, path string) (*api.UploadResponse, error)
}

// Watcher uploads a PDF once no further writes to it have been seen for
// Settle. Uploads run one at a time.
type Watcher struct {
	Uploader Uploader
	Settle   time.Duration
	// UploadExisting also uploads the PDFs already in the folder at start.
	UploadExisting bool
	Logger         *slog.Logger
	// OnUpload, when set, is called after every upload attempt.
	OnUpload func(path string, resp *api.UploadResponse, err error)
}

func New(uploader Uploader) *Watcher {
	return &Watcher{
		Uploader: uploader,
		Settle:   DefaultSettle,
		Logger:   slog.Default(),
	}
}

// Run watches dir until ctx is done.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.Logger.Info("Watching folder", "dir", dir)

	ready := make(chan string, 16)
	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
	)
	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok {
			t.Stop()
		}
		timers[path] = time.AfterFunc(w.Settle, func() {
			mu.Lock()
			delete(timers, path)
			mu.Unlock()
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		})
	}
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	if w.UploadExisting {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() && isPDF(e.Name()) {
				schedule(filepath.Join(dir, e.Name()))
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !isPDF(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				schedule(event.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn("Watcher error", "error", err)
		case path := <-ready:
			w.upload(ctx, path)
		}
	}
}

func (w *Watcher) upload(ctx context.Context, path string) {
	resp, err := w.Uploader.UploadFile(ctx, path)
	if err != nil {
		w.Logger.Error("Error uploading watched file", "path", path, "error", err)
	}
	if w.OnUpload != nil {
		w.OnUpload(path, resp, err)
	}
}

// isPDF matches the backend, which only accepts a lowercase .pdf suffix.
func isPDF(path string) bool {
	return filepath.Ext(path) == ".pdf"
}
