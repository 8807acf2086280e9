// Package export materializes a library asset into a temporary spool file
// while computing its content checksum in the same streamed pass.
package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/oglimmer/picz2/internal/library"
)

// chunkSize bounds memory use: assets are streamed in fixed-size reads, so a
// multi-gigabyte video never ends up in memory at once.
const chunkSize = 64 * 1024

// Result is the product of one export. It lives for exactly one upload
// attempt; Path must be deleted after the attempt regardless of outcome.
type Result struct {
	// Path of the spool file holding the asset bytes.
	Path string

	Filename string
	MIMEType string
	Size     int64

	// Checksum is the hex-encoded SHA-256 of the raw bytes. It is the
	// cross-device dedup key: two devices exporting the same logical photo
	// produce the same checksum.
	Checksum string
}

// Exporter streams assets from a Library into a spool directory.
type Exporter struct {
	lib      library.Library
	spoolDir string
}

// NewExporter creates the spool directory if needed.
func NewExporter(lib library.Library, spoolDir string) (*Exporter, error) {
	if err := os.MkdirAll(spoolDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating spool dir: %w", err)
	}
	return &Exporter{lib: lib, spoolDir: spoolDir}, nil
}

// SpoolDir returns the directory exports are written to.
func (e *Exporter) SpoolDir() string {
	return e.spoolDir
}

// Export copies the asset's bytes to a fresh spool file and returns the
// result, including the streamed SHA-256. The caller owns the spool file.
func (e *Exporter) Export(ctx context.Context, asset library.Asset) (*Result, error) {
	src, err := e.lib.Open(ctx, asset.ID)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	path := filepath.Join(e.spoolDir, uuid.NewString()+filepath.Ext(asset.Filename))
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating spool file: %w", err)
	}

	hasher := sha256.New()
	written, err := io.CopyBuffer(dst, io.TeeReader(src, hasher), make([]byte, chunkSize))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("exporting asset %s: %w", asset.ID, err)
	}

	return &Result{
		Path:     path,
		Filename: asset.Filename,
		MIMEType: asset.MIMEType(),
		Size:     written,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}
