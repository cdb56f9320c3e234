package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// fileData is the on-disk JSON structure.
type fileData struct {
	Version string                 `json:"version"`
	Floats  map[string]float64     `json:"floats"`
	Times   map[string]time.Time   `json:"times"`
	Lists   map[string][]time.Time `json:"lists"`
}

// FileStore persists preferences as a JSON file with debounced autosave.
// Reads and writes go through the in-memory copy; a failed save keeps the
// in-memory value authoritative and is logged as a warning.
type FileStore struct {
	mu       sync.Mutex
	data     fileData
	filePath string
	dirty    bool
	logger   *zap.Logger
}

// NewFileStore creates or loads the preference file under dataDir.
func NewFileStore(dataDir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	s := &FileStore{
		filePath: filepath.Join(dataDir, "prefs.json"),
		logger:   logger.Named("prefs"),
		data: fileData{
			Version: "1.0",
			Floats:  make(map[string]float64),
			Times:   make(map[string]time.Time),
			Lists:   make(map[string][]time.Time),
		},
	}

	if err := s.load(); err != nil {
		s.logger.Warn("failed to load prefs, starting empty", zap.Error(err))
	}

	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		return err
	}
	// Ensure maps are initialized if file was empty/partial
	if s.data.Floats == nil {
		s.data.Floats = make(map[string]float64)
	}
	if s.data.Times == nil {
		s.data.Times = make(map[string]time.Time)
	}
	if s.data.Lists == nil {
		s.data.Lists = make(map[string][]time.Time)
	}
	return nil
}

func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0644)
}

// markDirtyLocked schedules a debounced save.
func (s *FileStore) markDirtyLocked() {
	if s.dirty {
		return
	}
	s.dirty = true
	time.AfterFunc(2*time.Second, func() {
		if err := s.Flush(); err != nil {
			s.logger.Warn("autosave failed, keeping in-memory values", zap.Error(err))
		}
	})
}

func (s *FileStore) GetFloat(key string, def float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data.Floats[key]; ok {
		return v
	}
	return def
}

func (s *FileStore) SetFloat(key string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Floats[key] = v
	s.markDirtyLocked()
}

func (s *FileStore) GetTime(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.data.Times[key]
	return t, ok
}

func (s *FileStore) SetTime(key string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Times[key] = t
	s.markDirtyLocked()
}

func (s *FileStore) GetTimes(key string) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.data.Lists[key]
	out := make([]time.Time, len(ts))
	copy(out, ts)
	return out
}

func (s *FileStore) SetTimes(key string, ts []time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]time.Time, len(ts))
	copy(cp, ts)
	s.data.Lists[key] = cp
	s.markDirtyLocked()
}

// Flush writes pending values to disk.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveLocked(); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Close flushes and releases the store.
func (s *FileStore) Close() error {
	return s.Flush()
}
