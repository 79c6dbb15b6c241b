package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
)

// HTTPStore reads blobs from {endpoint}/{container}/{key}, the layout served by
// the artifact simulator.
type HTTPStore struct {
	client    *http.Client
	endpoint  string
	container string
	token     string
}

type HTTPStoreConfig struct {
	Endpoint  string
	Container string
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
}

func NewHTTPStore(cfg HTTPStoreConfig) (*HTTPStore, error) {
	if cfg.Endpoint == "" {
		return nil, apperrors.Configuration("store.NewHTTPStore", "endpoint is required", nil)
	}
	if cfg.Container == "" {
		return nil, apperrors.Configuration("store.NewHTTPStore", "container is required", nil)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &HTTPStore{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		container: cfg.Container,
		token:     cfg.Token,
	}, nil
}

func (s *HTTPStore) Authenticate(ctx context.Context) (Session, error) {
	const op = "store.Authenticate"
	healthURL := fmt.Sprintf("%s/health", s.endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return nil, apperrors.Authentication(op, "failed to create health check request", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.Authentication(op, "object store unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Authentication(op, fmt.Sprintf("health check returned status %d", resp.StatusCode), nil)
	}

	return &httpSession{store: s}, nil
}

func (s *HTTPStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *HTTPStore) blobURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.endpoint, url.PathEscape(s.container), url.PathEscape(key))
}

func (s *HTTPStore) authorize(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

type httpSession struct {
	store *HTTPStore
}

func (h *httpSession) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "store.Get"
	blobURL := h.store.blobURL(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, blobURL, nil)
	if err != nil {
		return nil, apperrors.DataUnavailable(op, key, err)
	}
	h.store.authorize(req)

	logger.FromContext(ctx).Debugf("Fetching blob from %s", blobURL)

	resp, err := h.store.client.Do(req)
	if err != nil {
		return nil, apperrors.DataUnavailable(op, key, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperrors.DataUnavailable(op, fmt.Sprintf("blob %s not found", key), nil)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, apperrors.Authentication(op, fmt.Sprintf("access to blob %s denied", key), nil)
	default:
		return nil, apperrors.DataUnavailable(op, fmt.Sprintf("blob %s: unexpected status code %d", key, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.DataUnavailable(op, fmt.Sprintf("failed to read blob %s", key), err)
	}
	return body, nil
}

func (h *httpSession) Put(ctx context.Context, key string, data []byte) error {
	const op = "store.Put"

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, h.store.blobURL(key), bytes.NewReader(data))
	if err != nil {
		return apperrors.DataUnavailable(op, key, err)
	}
	req.Header.Set("Content-Type", "application/json")
	h.store.authorize(req)

	resp, err := h.store.client.Do(req)
	if err != nil {
		return apperrors.DataUnavailable(op, key, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.Authentication(op, fmt.Sprintf("upload of blob %s denied", key), nil)
	default:
		return apperrors.DataUnavailable(op, fmt.Sprintf("upload of blob %s returned status %d", key, resp.StatusCode), nil)
	}
}
