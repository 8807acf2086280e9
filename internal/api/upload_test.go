package api

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oglimmer/picz2/internal/common"
)

func stageSample(t *testing.T, content []byte) (bodyPath, boundary string) {
	t.Helper()
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "export.jpg")
	require.NoError(t, os.WriteFile(exportPath, content, 0o600))

	bodyPath = filepath.Join(dir, "body.multipart")
	boundary, err := StageUploadBody(bodyPath, exportPath, "IMG_0001.jpg", "image/jpeg", "asset-17")
	require.NoError(t, err)
	return bodyPath, boundary
}

func TestStageUploadBody_FieldsAndContent(t *testing.T) {
	content := []byte("jpeg bytes here")
	bodyPath, boundary := stageSample(t, content)

	received := make(chan struct{})
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(received)
		requireBasicAuth(t, r)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/upload", r.URL.Path)
		assert.Positive(t, r.ContentLength, "staged body length must be known")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "asset-17", r.FormValue("contentId"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "IMG_0001.jpg", header.Filename)
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, content, data)

		w.WriteHeader(http.StatusCreated)
	}))

	require.NoError(t, c.UploadStaged(context.Background(), bodyPath, boundary))
	<-received
}

func TestUploadStaged_Resubmittable(t *testing.T) {
	// A staged body must survive one submission and be valid for a second
	// attempt (the durability contract after a crash or failure).
	bodyPath, boundary := stageSample(t, []byte("payload"))

	attempts := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		require.NoError(t, r.ParseMultipartForm(1<<20))
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	err := c.UploadStaged(context.Background(), bodyPath, boundary)
	var rejected *common.ServerRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusInternalServerError, rejected.StatusCode)

	require.NoError(t, c.UploadStaged(context.Background(), bodyPath, boundary))
	assert.Equal(t, 2, attempts)
}

func TestUploadStaged_Unauthorized(t *testing.T) {
	bodyPath, boundary := stageSample(t, []byte("payload"))

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := c.UploadStaged(context.Background(), bodyPath, boundary)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestStageUploadBody_MissingExport(t *testing.T) {
	dir := t.TempDir()
	_, err := StageUploadBody(filepath.Join(dir, "body"), filepath.Join(dir, "gone.jpg"),
		"gone.jpg", "image/jpeg", "a1")
	assert.Error(t, err)
}
