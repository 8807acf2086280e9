package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
)

// copyChunkSize bounds memory while staging: the exported asset is streamed
// into the body file in fixed-size chunks.
const copyChunkSize = 64 * 1024

// StageUploadBody writes a complete multipart body to bodyPath: a contentId
// field carrying the local asset ID (the server's correlation/dedup key),
// then the file part streamed from exportPath. The returned boundary must be
// presented in the Content-Type header when the body is submitted.
//
// Staging to disk rather than piping keeps the transfer durable: the staged
// body can be resubmitted after a process restart.
func StageUploadBody(bodyPath, exportPath, filename, mimeType, contentID string) (boundary string, err error) {
	src, err := os.Open(exportPath)
	if err != nil {
		return "", fmt.Errorf("opening export file: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(bodyPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating body file: %w", err)
	}
	defer func() {
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(bodyPath)
		}
	}()

	mw := multipart.NewWriter(dst)

	if err := mw.WriteField("contentId", contentID); err != nil {
		return "", fmt.Errorf("writing contentId field: %w", err)
	}

	part, err := createFilePart(mw, filename, mimeType)
	if err != nil {
		return "", fmt.Errorf("writing file part header: %w", err)
	}
	if _, err := io.CopyBuffer(part, src, make([]byte, copyChunkSize)); err != nil {
		return "", fmt.Errorf("streaming file part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}
	return mw.Boundary(), nil
}

func createFilePart(mw *multipart.Writer, filename, mimeType string) (io.Writer, error) {
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", mimeType)
	return mw.CreatePart(header)
}

// UploadStaged submits a staged multipart body to POST /api/upload. The body
// is streamed from disk with a known Content-Length. A 2xx response is
// success; 401/403 map to common.ErrUnauthorized, other statuses to
// ServerRejectedError, and transport failures are returned wrapped. The
// ledger is never touched here; the caller owns state transitions.
func (c *Client) UploadStaged(ctx context.Context, bodyPath, boundary string) error {
	body, err := os.Open(bodyPath)
	if err != nil {
		return fmt.Errorf("opening staged body: %w", err)
	}
	defer body.Close()

	info, err := body.Stat()
	if err != nil {
		return fmt.Errorf("stating staged body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", nil, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	req.ContentLength = info.Size()

	_, err = c.do(req)
	return err
}
