package store

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"vision-runtime-go/internal/models"
)

// PipelineRecord is the persisted shape of one pipeline index.
type PipelineRecord struct {
	Type     string                 `yaml:"type"`
	Name     string                 `yaml:"name"`
	Settings map[string]interface{} `yaml:"settings,omitempty"`
}

// Document is the settings file written on save: network identity, the
// camera map, and the pipeline map.
type Document struct {
	NetworkID string                         `yaml:"network_id"`
	Cameras   map[string]models.CameraConfig `yaml:"cameras"`
	Pipelines map[int]PipelineRecord         `yaml:"pipelines"`
}

// Store owns the persisted settings document. Reads and writes go through it;
// nothing is written to disk until Save is called explicitly.
type Store struct {
	path string

	mu  sync.Mutex
	doc Document
}

// Load reads the document at path. A missing file yields an empty document,
// not an error, so a fresh install starts clean.
func Load(path string) (*Store, error) {
	s := &Store{
		path: path,
		doc: Document{
			Cameras:   make(map[string]models.CameraConfig),
			Pipelines: make(map[int]PipelineRecord),
		},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Info().Str("path", path).Msg("No settings file found, starting with empty document")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if s.doc.Cameras == nil {
		s.doc.Cameras = make(map[string]models.CameraConfig)
	}
	if s.doc.Pipelines == nil {
		s.doc.Pipelines = make(map[int]PipelineRecord)
	}

	log.Info().
		Str("path", path).
		Int("cameras", len(s.doc.Cameras)).
		Int("pipelines", len(s.doc.Pipelines)).
		Msg("Settings document loaded")
	return s, nil
}

// Save writes the current document to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(&s.doc)
	if err != nil {
		return fmt.Errorf("failed to marshal settings document: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	log.Debug().Str("path", s.path).Msg("Settings document saved")
	return nil
}

// NetworkID returns the persisted network identity.
func (s *Store) NetworkID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.NetworkID
}

// SetNetworkID records the network identity.
func (s *Store) SetNetworkID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.NetworkID = id
}

// Camera looks up a persisted camera config by stable id.
func (s *Store) Camera(id string) (models.CameraConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.doc.Cameras[id]
	return cfg, ok
}

// UpsertCamera records a camera config under its stable id.
func (s *Store) UpsertCamera(cfg models.CameraConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Cameras[cfg.ID] = cfg
}

// Cameras copies the persisted camera map.
func (s *Store) Cameras() map[string]models.CameraConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.CameraConfig, len(s.doc.Cameras))
	for id, cfg := range s.doc.Cameras {
		out[id] = cfg
	}
	return out
}

// Pipelines copies the persisted pipeline map.
func (s *Store) Pipelines() map[int]PipelineRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]PipelineRecord, len(s.doc.Pipelines))
	for idx, rec := range s.doc.Pipelines {
		out[idx] = rec
	}
	return out
}

// SetPipeline records one pipeline index.
func (s *Store) SetPipeline(index int, rec PipelineRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Pipelines[index] = rec
}

// DeletePipeline drops a persisted pipeline index.
func (s *Store) DeletePipeline(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.doc.Pipelines, index)
}
