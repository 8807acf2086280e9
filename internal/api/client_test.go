package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oglimmer/picz2/internal/common"
	"github.com/oglimmer/picz2/internal/credentials"
	"github.com/oglimmer/picz2/internal/logging"
)

type staticCreds struct {
	user, pass string
}

func (s *staticCreds) Load(context.Context) (*credentials.Credentials, error) {
	return &credentials.Credentials{Username: s.user, Password: s.pass}, nil
}
func (s *staticCreds) Save(context.Context, *credentials.Credentials) error { return nil }
func (s *staticCreds) Clear(context.Context) error                          { return nil }

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, &staticCreds{user: "alice", pass: "s3cret"}, srv.Client(),
		logging.NewZerologLogger(zerolog.Nop()))
	require.NoError(t, err)
	return c, srv
}

func requireBasicAuth(t *testing.T, r *http.Request) {
	t.Helper()
	user, pass, ok := r.BasicAuth()
	require.True(t, ok, "request must carry Basic auth")
	require.Equal(t, "alice", user)
	require.Equal(t, "s3cret", pass)
}

func TestAlbums(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBasicAuth(t, r)
		assert.Equal(t, "/api/albums", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"albums":[
			{"id":1,"name":"Family","fileCount":12},
			{"id":2,"name":"Trips","coverImageToken":"tok"}
		]}`))
	}))

	albums, err := c.Albums(context.Background())
	require.NoError(t, err)
	require.Len(t, albums, 2)
	assert.Equal(t, int64(1), albums[0].ID)
	assert.Equal(t, "Family", albums[0].Name)
	require.NotNil(t, albums[0].FileCount)
	assert.Equal(t, 12, *albums[0].FileCount)
	require.NotNil(t, albums[1].CoverImageToken)
	assert.Equal(t, "tok", *albums[1].CoverImageToken)
}

func TestAlbums_DecodeFailsClosed(t *testing.T) {
	cases := map[string]string{
		"missing success": `{"albums":[]}`,
		"missing albums":  `{"success":true}`,
		"nameless album":  `{"success":true,"albums":[{"id":1}]}`,
		"wrong types":     `{"success":true,"albums":[{"id":"one","name":"x"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))

			_, err := c.Albums(context.Background())
			var decodeErr *common.DecodeError
			assert.ErrorAs(t, err, &decodeErr)
		})
	}
}

func TestTargetAlbum(t *testing.T) {
	t.Run("selected", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/settings/target-album", r.URL.Path)
			_, _ = w.Write([]byte(`{"success":true,"albumId":7}`))
		}))

		id, err := c.TargetAlbum(context.Background())
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, int64(7), *id)
	})

	t.Run("cleared server-side", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"albumId":null}`))
		}))

		id, err := c.TargetAlbum(context.Background())
		require.NoError(t, err)
		assert.Nil(t, id)
	})
}

func TestSetAndClearTargetAlbum(t *testing.T) {
	var gotMethod, gotBody string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBasicAuth(t, r)
		gotMethod = r.Method
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		gotBody = string(buf)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))

	require.NoError(t, c.SetTargetAlbum(context.Background(), 7))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.JSONEq(t, `{"albumId":7}`, gotBody)

	require.NoError(t, c.ClearTargetAlbum(context.Background()))
	assert.Equal(t, http.MethodDelete, gotMethod)
}

func TestUploadedChecksums(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sync/uploaded-checksums", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("days"))
		_, _ = w.Write([]byte(`{"success":true,"checksums":["c1","c2"],"count":2}`))
	}))

	sums, err := c.UploadedChecksums(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, sums)
}

func TestUploadedChecksums_CountMismatchFailsClosed(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"checksums":["c1"],"count":5}`))
	}))

	_, err := c.UploadedChecksums(context.Background(), 4)
	var decodeErr *common.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestCheckAuth(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/check", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"email":"alice@example.org"}`))
	}))

	email, err := c.CheckAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", email)
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.Albums(context.Background())
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = c.CheckAuth(context.Background())
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestServerErrorCarriesStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.UploadedChecksums(context.Background(), 4)
	var rejected *common.ServerRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusBadGateway, rejected.StatusCode)
}
