package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oglimmer/picz2/internal/common"
	"github.com/oglimmer/picz2/internal/logging"
)

// DirLibrary is a Library backed by a directory tree of media files. Asset
// IDs are slash-separated paths relative to the root, which keeps them
// stable across rescans. Creation time is the file modification time.
type DirLibrary struct {
	root string
	log  logging.Logger
}

func NewDirLibrary(root string, log logging.Logger) *DirLibrary {
	return &DirLibrary{root: root, log: log.With("component", "library")}
}

func (d *DirLibrary) Authorized(_ context.Context) error {
	info, err := os.Stat(d.root)
	if err != nil || !info.IsDir() {
		return common.ErrPermissionDenied
	}
	if _, err := os.ReadDir(d.root); err != nil {
		return common.ErrPermissionDenied
	}
	return nil
}

func (d *DirLibrary) Assets(ctx context.Context, since time.Time) ([]Asset, error) {
	var assets []Asset

	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			// Dot-directories are not part of the library.
			if name := entry.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		kind, ok := kindForExt(strings.ToLower(filepath.Ext(entry.Name())))
		if !ok {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			// File vanished mid-walk; it will show up next scan if it returns.
			return nil
		}
		if !info.ModTime().After(since) {
			return nil
		}

		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}

		assets = append(assets, Asset{
			ID:        filepath.ToSlash(rel),
			Filename:  entry.Name(),
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
			Kind:      kind,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning library: %w", err)
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].CreatedAt.Before(assets[j].CreatedAt) })
	return assets, nil
}

func (d *DirLibrary) Open(_ context.Context, id string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.root, filepath.FromSlash(id)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.ErrNoResource
		}
		return nil, fmt.Errorf("opening asset %s: %w", id, err)
	}
	return f, nil
}

// Watch invokes onChange (debounced) whenever files under the library root
// change. It blocks until ctx is cancelled. New subdirectories are added to
// the watch as they appear.
func (d *DirLibrary) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if name := entry.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watching library: %w", err)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(debounce, onChange)
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.log.Warn(ctx, "library watch error", "error", err)
		}
	}
}
