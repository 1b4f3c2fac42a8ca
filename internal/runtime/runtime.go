// Package runtime assembles the whole vision worker: settings store, sync
// bus, pipeline and camera registries, and the dispatcher, in dependency
// order.
package runtime

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/config"
	"vision-runtime-go/internal/models"
	"vision-runtime-go/internal/services/camera"
	"vision-runtime-go/internal/services/dispatch"
	"vision-runtime-go/internal/services/pipeline"
	"vision-runtime-go/internal/services/syncbus"
	"vision-runtime-go/internal/store"
)

// Runtime owns every long-lived component and tears them down in reverse
// order of construction.
type Runtime struct {
	cfg        *config.Config
	store      *store.Store
	bus        syncbus.Bus
	bridge     *syncbus.Bridge
	pipelines  *pipeline.Registry
	cameras    *camera.Registry
	dispatcher *dispatch.Dispatcher
}

// New builds the runtime but starts nothing. The settings file is loaded
// here; a missing file yields an empty store, any other read error is fatal.
func New(cfg *config.Config) (*Runtime, error) {
	st, err := store.Load(cfg.SettingsFile)
	if err != nil {
		return nil, fmt.Errorf("loading settings store: %w", err)
	}

	var bus syncbus.Bus
	if cfg.NatsURL == "" {
		log.Warn().Msg("NATS_URL not set, settings sync is local only")
		bus = syncbus.NewMemoryBus()
	} else {
		nb, err := syncbus.NewNatsBus(cfg)
		if err != nil {
			// The robot must keep seeing even when the dashboard bus is
			// down, so this degrades instead of failing.
			log.Error().Err(err).Str("url", cfg.NatsURL).Msg("NATS unreachable, falling back to in-memory bus")
			bus = syncbus.NewMemoryBus()
		} else {
			bus = nb
		}
	}

	bridge := syncbus.NewBridge(bus)

	pipes := pipeline.NewRegistry(st)
	pipes.LoadTypes()
	pipes.LoadSettings()

	cams := camera.NewRegistry(cfg, st)
	cams.SetSinkFactory(func(res models.Resolution) camera.FrameSink {
		return camera.NewStreamSink(res)
	})

	disp := dispatch.New(cfg, cams, pipes, bridge)

	return &Runtime{
		cfg:        cfg,
		store:      st,
		bus:        bus,
		bridge:     bridge,
		pipelines:  pipes,
		cameras:    cams,
		dispatcher: disp,
	}, nil
}

// Start arms the dispatcher listeners and kicks off device discovery.
// Dispatcher first: cameras found by the initial discovery pass must already
// have their OnAdded hook in place.
func (r *Runtime) Start() {
	r.dispatcher.Start()
	r.cameras.StartDiscovery()
	log.Info().
		Int("pipeline_types", len(r.pipelines.Types())).
		Int("loaded_pipelines", len(r.pipelines.Indices())).
		Msg("Vision runtime started")
}

// Shutdown stops capture, drains the dispatch workers, persists settings,
// and closes the bus. Recordings are flushed by the camera registry cleanup.
func (r *Runtime) Shutdown() {
	log.Info().Msg("Vision runtime shutting down")
	r.cameras.Cleanup()
	r.dispatcher.Shutdown()
	if err := r.store.Save(); err != nil {
		log.Error().Err(err).Msg("Failed to persist settings on shutdown")
	}
	if err := r.bus.Close(); err != nil {
		log.Error().Err(err).Msg("Sync bus close failed")
	}
}

func (r *Runtime) Config() *config.Config           { return r.cfg }
func (r *Runtime) Store() *store.Store              { return r.store }
func (r *Runtime) Bridge() *syncbus.Bridge          { return r.bridge }
func (r *Runtime) Cameras() *camera.Registry        { return r.cameras }
func (r *Runtime) Pipelines() *pipeline.Registry    { return r.pipelines }
func (r *Runtime) Dispatcher() *dispatch.Dispatcher { return r.dispatcher }
