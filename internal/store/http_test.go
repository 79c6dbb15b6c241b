package store

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
)

type fakeBucket struct {
	mu    sync.Mutex
	blobs map[string][]byte
	token string
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if b.token != "" && r.Header.Get("Authorization") != "Bearer "+b.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.URL.Path == "/health" {
		w.WriteHeader(http.StatusOK)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		data, ok := b.blobs[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		b.blobs[r.URL.Path] = data
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestHTTPStore(t *testing.T, bucket *fakeBucket, token string) *HTTPStore {
	t.Helper()

	server := httptest.NewServer(bucket)
	t.Cleanup(server.Close)

	s, err := NewHTTPStore(HTTPStoreConfig{Endpoint: server.URL + "/", Container: "artifacts", Token: token})
	require.NoError(t, err)
	return s
}

func TestHTTPStore_GetAndPut(t *testing.T) {
	bucket := &fakeBucket{blobs: map[string][]byte{
		"/artifacts/log_data.json": []byte(`{"samples":[]}`),
	}}
	s := newTestHTTPStore(t, bucket, "")

	session, err := s.Authenticate(context.Background())
	require.NoError(t, err)

	data, err := session.Get(context.Background(), "log_data.json")
	require.NoError(t, err)
	assert.Equal(t, `{"samples":[]}`, string(data))

	require.NoError(t, session.Put(context.Background(), "admin_users.json", []byte("{}")))
	assert.Equal(t, []byte("{}"), bucket.blobs["/artifacts/admin_users.json"])
}

func TestHTTPStore_MissingBlob(t *testing.T) {
	s := newTestHTTPStore(t, &fakeBucket{blobs: map[string][]byte{}}, "")

	session, err := s.Authenticate(context.Background())
	require.NoError(t, err)

	_, err = session.Get(context.Background(), "end_users.json")
	assert.ErrorIs(t, err, apperrors.ErrDataUnavailable)
}

func TestHTTPStore_Authentication(t *testing.T) {
	bucket := &fakeBucket{blobs: map[string][]byte{}, token: "secret"}

	_, err := newTestHTTPStore(t, bucket, "wrong").Authenticate(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)

	_, err = newTestHTTPStore(t, bucket, "secret").Authenticate(context.Background())
	assert.NoError(t, err)
}

func TestHTTPStore_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	s, err := NewHTTPStore(HTTPStoreConfig{Endpoint: endpoint, Container: "artifacts"})
	require.NoError(t, err)

	_, err = s.Authenticate(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)
}

func TestNewHTTPStore_Validation(t *testing.T) {
	_, err := NewHTTPStore(HTTPStoreConfig{Container: "artifacts"})
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)

	_, err = NewHTTPStore(HTTPStoreConfig{Endpoint: "http://localhost"})
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestClose(t *testing.T) {
	s := newTestHTTPStore(t, &fakeBucket{blobs: map[string][]byte{}}, "")
	assert.NoError(t, Close(s))

	fsStore, err := NewFSStoreWithFs(afero.NewMemMapFs(), "/data", "artifacts")
	require.NoError(t, err)
	assert.NoError(t, Close(fsStore))
}
