package simulator

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/OldStager01/forecast-autoscaler/internal/forecast"
	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/internal/store"
	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

const (
	bucketRoot  = "/bucket"
	maxBlobSize = 32 << 20
)

type Config struct {
	Port      int
	Container string
	// Token, when set, must be presented as a bearer token on every request.
	Token     string
	Samples   int
	Windows   map[models.Role]int
	Keys      forecast.ArtifactKeys
	Generator GeneratorConfig
}

// Simulator serves a synthetic artifact bucket over HTTP in the layout read by
// store.HTTPStore, and lets operators reshape the activity it publishes.
type Simulator struct {
	config     Config
	generator  *Generator
	bucket     *store.FSStore
	session    store.Session
	mu         sync.Mutex
	spike      *Spike
	httpServer *http.Server
}

func New(cfg Config) (*Simulator, error) {
	if cfg.Port == 0 {
		cfg.Port = 9000
	}
	if cfg.Container == "" {
		cfg.Container = "artifacts"
	}
	if cfg.Samples <= 0 {
		cfg.Samples = 7 * 24
	}
	if cfg.Windows == nil {
		cfg.Windows = forecast.DefaultWindows()
	}
	if cfg.Keys == (forecast.ArtifactKeys{}) {
		cfg.Keys = forecast.DefaultArtifactKeys()
	}
	if cfg.Generator == (GeneratorConfig{}) {
		cfg.Generator = DefaultGeneratorConfig()
	}

	fsys := afero.NewMemMapFs()
	if err := fsys.MkdirAll(bucketRoot+"/"+cfg.Container, 0o755); err != nil {
		return nil, err
	}
	bucket, err := store.NewFSStoreWithFs(fsys, bucketRoot, cfg.Container)
	if err != nil {
		return nil, err
	}
	session, err := bucket.Authenticate(context.Background())
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		config:    cfg,
		generator: NewGenerator(cfg.Generator),
		bucket:    bucket,
		session:   session,
	}
	if err := s.publish(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// publish regenerates the dataset and rewrites every artifact.
func (s *Simulator) publish(ctx context.Context) error {
	ds := s.generator.Generate(s.config.Samples)
	bundle, err := NewBundle(ds, s.config.Windows, s.generator.Weights())
	if err != nil {
		return err
	}
	if err := bundle.Publish(ctx, s.session, s.config.Keys); err != nil {
		return err
	}

	last := ds.Samples[len(ds.Samples)-1]
	logger.WithFields(map[string]interface{}{
		"pattern":         s.generator.Pattern(),
		"samples":         len(ds.Samples),
		"last_completion": round2(s.generator.Weights().Apply(last)),
	}).Info("Published synthetic artifacts")
	return nil
}

func (s *Simulator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/pattern", s.patternHandler)
	mux.HandleFunc("/spike", s.spikeHandler)
	mux.HandleFunc("/", s.blobHandler)
	return s.authorize(mux)
}

func (s *Simulator) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := "Bearer " + s.config.Token
		got := r.Header.Get("Authorization")
		if s.config.Token != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Simulator) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Infof("Artifact simulator listening on %s (container %s)", addr, s.config.Container)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Simulator server error: %v", err)
		}
	}()
	return nil
}

func (s *Simulator) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Simulator) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "artifact-simulator",
	})
}

func (s *Simulator) statusHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	spike := s.spike
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"container": s.config.Container,
		"pattern":   s.generator.Pattern(),
		"patterns":  PatternNames(),
		"samples":   s.config.Samples,
		"spike":     spike,
		"weights":   s.generator.Weights(),
		"keys":      s.config.Keys,
	})
}

// blobHandler serves GET and PUT on /{container}/{key}.
func (s *Simulator) blobHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	container, key, ok := strings.Cut(path, "/")
	if !ok || container != s.config.Container || key == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such container or blob"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		data, err := s.session.Get(r.Context(), key)
		if errors.Is(err, apperrors.ErrDataUnavailable) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "blob not found"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)

	case http.MethodPut:
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBlobSize))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
			return
		}
		if err := s.session.Put(r.Context(), key, data); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		logger.Infof("Stored blob %s/%s (%d bytes)", container, key, len(data))
		w.WriteHeader(http.StatusCreated)

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

// SetPattern switches the activity pattern and republishes the artifacts.
func (s *Simulator) SetPattern(ctx context.Context, pattern Pattern) error {
	s.generator.SetPattern(pattern)
	if err := s.publish(ctx); err != nil {
		return err
	}
	logger.Infof("Set activity pattern %s", pattern.Name())
	return nil
}

type PatternRequest struct {
	Pattern string `json:"pattern"`
	Seed    int64  `json:"seed"`
}

func (s *Simulator) patternHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req PatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	pattern := ParsePattern(req.Pattern, req.Seed)
	if err := s.SetPattern(r.Context(), pattern); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "pattern set",
		"pattern": pattern.Name(),
	})
}

// spikeHandler injects (POST) or clears (DELETE) a spike at the end of the series.
func (s *Simulator) spikeHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var spike Spike
		if err := json.NewDecoder(r.Body).Decode(&spike); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if spike.Factor <= 0 || spike.Length <= 0 || spike.RampUp < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "factor and length must be positive"})
			return
		}
		s.generator.InjectSpike(spike)
		s.mu.Lock()
		s.spike = &spike
		s.mu.Unlock()
		logger.Infof("Injected activity spike x%.2f over the last %d samples", spike.Factor, spike.Length)

	case http.MethodDelete:
		s.generator.ClearSpike()
		s.mu.Lock()
		s.spike = nil
		s.mu.Unlock()
		logger.Info("Cleared activity spike")

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := s.publish(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "spike updated", "pattern": s.generator.Pattern()})
}
