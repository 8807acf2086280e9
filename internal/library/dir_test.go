package library

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oglimmer/picz2/internal/common"
	"github.com/oglimmer/picz2/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewZerologLogger(zerolog.Nop())
}

func writeFile(t *testing.T, root, name string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("content of "+name), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestDirLibrary_Assets(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	writeFile(t, root, "old.jpg", now.Add(-72*time.Hour))
	writeFile(t, root, "recent.jpg", now.Add(-1*time.Hour))
	writeFile(t, root, "trip/video.mov", now.Add(-30*time.Minute))
	writeFile(t, root, "notes.txt", now) // not media

	lib := NewDirLibrary(root, testLogger())
	ctx := context.Background()

	all, err := lib.Assets(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// oldest first
	assert.Equal(t, "old.jpg", all[0].ID)
	assert.Equal(t, KindImage, all[0].Kind)
	assert.Equal(t, "trip/video.mov", all[2].ID)
	assert.Equal(t, KindVideo, all[2].Kind)

	recent, err := lib.Assets(ctx, now.Add(-2*time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "recent.jpg", recent[0].ID)
}

func TestDirLibrary_Open(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.jpg", time.Now())

	lib := NewDirLibrary(root, testLogger())
	ctx := context.Background()

	rc, err := lib.Open(ctx, "a.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "content of a.jpg", string(data))

	_, err = lib.Open(ctx, "gone.jpg")
	assert.ErrorIs(t, err, common.ErrNoResource)
}

func TestDirLibrary_Authorized(t *testing.T) {
	lib := NewDirLibrary(t.TempDir(), testLogger())
	assert.NoError(t, lib.Authorized(context.Background()))

	missing := NewDirLibrary(filepath.Join(t.TempDir(), "nope"), testLogger())
	assert.ErrorIs(t, missing.Authorized(context.Background()), common.ErrPermissionDenied)
}

func TestAsset_MIMEType(t *testing.T) {
	assert.Equal(t, "image/jpeg", Asset{Filename: "IMG_0001.JPG"}.MIMEType())
	assert.Equal(t, "video/quicktime", Asset{Filename: "clip.mov"}.MIMEType())
	assert.Equal(t, "application/octet-stream", Asset{Filename: "blob.bin"}.MIMEType())
}

func TestDirLibrary_Watch(t *testing.T) {
	root := t.TempDir()
	lib := NewDirLibrary(root, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- lib.Watch(ctx, 50*time.Millisecond, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, root, "new.jpg", time.Now())

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not report the new file")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
