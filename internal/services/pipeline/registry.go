// Package pipeline manages the table of processing pipeline types and the
// live instances bound to pipeline indices.
package pipeline

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/models"
	"vision-runtime-go/internal/store"
)

// Pipeline is the capability contract a processing implementation satisfies.
// ProcessFrame returns nothing, one frame, or an ordered frame sequence.
// Panics raised inside ProcessFrame are the dispatcher's problem, not the
// pipeline author's.
type Pipeline interface {
	ProcessFrame(frame *models.Frame, ts time.Time) (models.FrameResult, error)
}

// ResultPublisher lets a pipeline publish arbitrary keyed result values
// alongside its frame output.
type ResultPublisher interface {
	PublishResult(key string, value interface{})
}

// ResultAware pipelines receive a publisher after construction.
type ResultAware interface {
	SetResultPublisher(pub ResultPublisher)
}

// Factory describes one compiled-in pipeline type.
type Factory struct {
	Type     string
	Disabled bool
	Schema   models.SettingsSchema
	New      func(settings *models.PipelineSettings) Pipeline
}

var (
	buildMu  sync.Mutex
	builtins = map[string]Factory{}
)

// Register adds a factory to the compiled-in type table. Called from init
// funcs of implementation files.
func Register(f Factory) {
	buildMu.Lock()
	defer buildMu.Unlock()
	builtins[f.Type] = f
}

// Registry owns pipeline types, per-index settings objects, and live
// instances. The index maps are guarded for concurrent reads from dispatch
// workers.
type Registry struct {
	store *store.Store

	mu        sync.RWMutex
	types     map[string]Factory
	instances map[int]Pipeline
	settings  map[int]*models.PipelineSettings
	names     map[int]string
	typeOf    map[int]string
	defaults  map[string]int // camera id -> fallback pipeline index

	onAdded   []func(index int)
	onRemoved []func(index int)
}

func NewRegistry(st *store.Store) *Registry {
	return &Registry{
		store:     st,
		types:     make(map[string]Factory),
		instances: make(map[int]Pipeline),
		settings:  make(map[int]*models.PipelineSettings),
		names:     make(map[int]string),
		typeOf:    make(map[int]string),
		defaults:  make(map[string]int),
	}
}

// LoadTypes collects every registered factory that is not marked disabled.
// A disabled factory is logged and skipped, never an error.
func (r *Registry) LoadTypes() {
	buildMu.Lock()
	defer buildMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	for name, f := range builtins {
		if f.Disabled {
			log.Info().Str("type", name).Msg("Pipeline type marked disabled, skipping")
			continue
		}
		r.types[name] = f
		log.Info().Str("type", name).Int("settings", len(f.Schema)).Msg("Pipeline type loaded")
	}
}

// LoadSettings restores persisted pipeline indices and the camera default
// map from the settings document. A record whose type is no longer loaded is
// logged and dropped.
func (r *Registry) LoadSettings() {
	for index, rec := range r.store.Pipelines() {
		if err := r.AddPipeline(index, rec.Name, rec.Type, rec.Settings); err != nil {
			log.Warn().
				Err(err).
				Int("index", index).
				Str("type", rec.Type).
				Msg("Dropping persisted pipeline record")
		}
	}
	for id, cfg := range r.store.Cameras() {
		r.mu.Lock()
		r.defaults[id] = cfg.DefaultPipeline
		r.mu.Unlock()
	}
}

// AddPipeline constructs a fresh settings object seeded with initial values,
// builds an instance of typeName bound to it, and stores both under index.
func (r *Registry) AddPipeline(index int, name, typeName string, initial map[string]interface{}) error {
	r.mu.Lock()
	factory, ok := r.types[typeName]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("pipeline type %q is not loaded", typeName)
	}
	if _, exists := r.instances[index]; exists {
		r.mu.Unlock()
		return fmt.Errorf("pipeline index %d is already in use", index)
	}

	settings, err := models.NewPipelineSettings(factory.Schema, initial)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("invalid settings for pipeline %q: %w", typeName, err)
	}

	instance := factory.New(settings)
	r.instances[index] = instance
	r.settings[index] = settings
	r.names[index] = name
	r.typeOf[index] = typeName
	listeners := make([]func(int), len(r.onAdded))
	copy(listeners, r.onAdded)
	r.mu.Unlock()

	r.store.SetPipeline(index, store.PipelineRecord{
		Type:     typeName,
		Name:     name,
		Settings: settings.Snapshot(),
	})

	log.Info().
		Int("index", index).
		Str("name", name).
		Str("type", typeName).
		Msg("Pipeline added")

	for _, fn := range listeners {
		fn(index)
	}
	return nil
}

// RemovePipeline drops the instance, name, type, and settings stored under
// index and fires the removed event consumed by the dispatcher's rebinding
// rule.
func (r *Registry) RemovePipeline(index int) error {
	r.mu.Lock()
	if _, exists := r.instances[index]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("pipeline index %d does not exist", index)
	}
	delete(r.instances, index)
	delete(r.settings, index)
	delete(r.names, index)
	delete(r.typeOf, index)
	listeners := make([]func(int), len(r.onRemoved))
	copy(listeners, r.onRemoved)
	r.mu.Unlock()

	r.store.DeletePipeline(index)

	log.Info().Int("index", index).Msg("Pipeline removed")

	for _, fn := range listeners {
		fn(index)
	}
	return nil
}

// SetDefaultPipeline records the fallback pipeline for a camera and writes
// it through to the persisted camera config so it survives a restart.
// Rejected when index is not currently loaded.
func (r *Registry) SetDefaultPipeline(cameraID string, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[index]; !ok {
		log.Warn().
			Str("camera_id", cameraID).
			Int("index", index).
			Msg("Rejecting default pipeline: index not loaded")
		return fmt.Errorf("pipeline index %d is not loaded", index)
	}
	r.defaults[cameraID] = index
	if cfg, ok := r.store.Camera(cameraID); ok {
		cfg.DefaultPipeline = index
		r.store.UpsertCamera(cfg)
	}
	return nil
}

// DefaultPipeline returns the camera's fallback index, InvalidPipeline if
// none was recorded.
func (r *Registry) DefaultPipeline(cameraID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx, ok := r.defaults[cameraID]; ok {
		return idx
	}
	return models.InvalidPipeline
}

// Instance returns the live pipeline at index, nil when the index is invalid
// or unbound.
func (r *Registry) Instance(index int) Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.instances[index]
}

// Settings returns the settings object owned by index, nil when absent.
func (r *Registry) Settings(index int) *models.PipelineSettings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings[index]
}

// Type returns the type name stored under index.
func (r *Registry) Type(index int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typeOf[index]
}

// Name returns the display name stored under index.
func (r *Registry) Name(index int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names[index]
}

// Types lists the loaded type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Indices lists the occupied pipeline indices, sorted.
func (r *Registry) Indices() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, 0, len(r.instances))
	for idx := range r.instances {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// OnAdded registers a listener for the pipeline-added event.
func (r *Registry) OnAdded(fn func(index int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAdded = append(r.onAdded, fn)
}

// OnRemoved registers a listener for the pipeline-removed event.
func (r *Registry) OnRemoved(fn func(index int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemoved = append(r.onRemoved, fn)
}
