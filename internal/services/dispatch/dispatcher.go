// Package dispatch runs the per-camera processing loop and owns the
// camera-to-pipeline binding table.
package dispatch

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/config"
	"vision-runtime-go/internal/models"
	"vision-runtime-go/internal/services/camera"
	"vision-runtime-go/internal/services/pipeline"
	"vision-runtime-go/internal/services/syncbus"
)

// Dispatcher binds cameras to pipelines and drives one processing worker per
// camera. A camera is Idle until a pipeline is bound to it; binding can be
// flipped live, locally or from the sync bus.
type Dispatcher struct {
	cfg       *config.Config
	cameras   *camera.Registry
	pipelines *pipeline.Registry
	bridge    *syncbus.Bridge
	reporter  *MetricsReporter

	mu        sync.RWMutex
	bindings  map[string]int    // camera id -> pipeline index, InvalidPipeline when idle
	selectors map[string]string // camera id -> view selector
	unsubs    map[string][]func()
	// unsubsSettings hold the per-settings-key listeners of the currently
	// bound pipeline; they are torn down on every rebind.
	unsubsSettings map[string][]func()

	stop    chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

func New(cfg *config.Config, cams *camera.Registry, pipes *pipeline.Registry, bridge *syncbus.Bridge) *Dispatcher {
	return &Dispatcher{
		cfg:            cfg,
		cameras:        cams,
		pipelines:      pipes,
		bridge:         bridge,
		reporter:       NewMetricsReporter(bridge, cfg.MetricsInterval),
		bindings:       make(map[string]int),
		selectors:      make(map[string]string),
		unsubs:         make(map[string][]func()),
		unsubsSettings: make(map[string][]func()),
		stop:           make(chan struct{}),
	}
}

// Start wires the dispatcher into both registries and spawns the metrics
// worker: added cameras get a processing worker, removed pipelines trigger
// the rebinding rule.
func (d *Dispatcher) Start() {
	d.cameras.OnAdded(d.attachCamera)
	d.pipelines.OnRemoved(d.rebindAfterRemoval)
	d.wg.Add(1)
	go d.reporter.run(d.stop, &d.wg)
}

// Shutdown stops every processing worker and waits for in-flight iterations
// to finish. Nothing is forcibly cancelled mid-pipeline.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	unsubs := d.unsubs
	settingUnsubs := d.unsubsSettings
	d.unsubs = make(map[string][]func())
	d.unsubsSettings = make(map[string][]func())
	d.mu.Unlock()

	close(d.stop)
	d.wg.Wait()

	for _, fns := range unsubs {
		for _, fn := range fns {
			fn()
		}
	}
	for _, fns := range settingUnsubs {
		for _, fn := range fns {
			fn()
		}
	}
	log.Info().Msg("Dispatcher shut down")
}

// attachCamera registers the camera with the dispatcher and spawns its
// processing worker.
func (d *Dispatcher) attachCamera(cam *camera.Camera) {
	d.register(cam)
	d.wg.Add(1)
	go d.runCamera(cam)
}

// register wires bus listeners for one camera and binds its default
// pipeline. Split from attachCamera so tests can drive step directly.
func (d *Dispatcher) register(cam *camera.Camera) {
	id := cam.Config.ID

	d.mu.Lock()
	d.bindings[id] = models.InvalidPipeline
	d.selectors[id] = "step_0"
	d.mu.Unlock()

	d.listen(id, pipelineKey(id), func(_ string, value interface{}) {
		idx, ok := asInt(value)
		if !ok {
			log.Warn().Str("camera_id", id).Interface("value", value).Msg("Ignoring non-numeric pipeline selector from bus")
			return
		}
		if err := d.SetPipelineByIndex(id, idx); err != nil {
			log.Warn().Err(err).Str("camera_id", id).Int("index", idx).Msg("Remote pipeline selection rejected")
		}
	})
	d.listen(id, viewKey(id), func(_ string, value interface{}) {
		sel, ok := value.(string)
		if !ok {
			return
		}
		d.SetViewSelector(id, sel)
	})
	d.listen(id, recordKey(id), func(_ string, value interface{}) {
		on, ok := value.(bool)
		if !ok {
			return
		}
		if err := d.cameras.SetRecording(id, on); err != nil {
			log.Warn().Err(err).Str("camera_id", id).Msg("Remote record toggle failed")
		}
	})

	if def := d.defaultPipeline(cam); def != models.InvalidPipeline {
		if err := d.SetPipelineByIndex(id, def); err != nil {
			log.Warn().Err(err).Str("camera_id", id).Int("index", def).Msg("Default pipeline could not be bound")
		}
	}
}

// defaultPipeline resolves the camera's fallback index: an override recorded
// in the pipeline registry wins, otherwise the persisted camera config. A
// camera discovered at runtime only ever has the latter.
func (d *Dispatcher) defaultPipeline(cam *camera.Camera) int {
	if def := d.pipelines.DefaultPipeline(cam.Config.ID); def != models.InvalidPipeline {
		return def
	}
	return cam.Config.DefaultPipeline
}

// SetPipelineByIndex rebinds a camera. A pipeline index held by another
// camera is rejected outright: binding state is untouched and the remote
// selector for the camera is reverted to its previous value, so the conflict
// is visible rather than silently resolved. Passing InvalidPipeline unbinds.
func (d *Dispatcher) SetPipelineByIndex(cameraID string, index int) error {
	cam, ok := d.cameras.Camera(cameraID)
	if !ok {
		return fmt.Errorf("camera %s is not registered", cameraID)
	}

	d.mu.Lock()
	previous, known := d.bindings[cameraID]
	if !known {
		d.mu.Unlock()
		return fmt.Errorf("camera %s is not attached to the dispatcher", cameraID)
	}

	if index == models.InvalidPipeline {
		d.clearSettingListenersLocked(cameraID)
		d.bindings[cameraID] = models.InvalidPipeline
		d.mu.Unlock()
		d.bridge.Publish(pipelineKey(cameraID), models.InvalidPipeline)
		log.Info().Str("camera_id", cameraID).Msg("Camera unbound")
		return nil
	}

	instance := d.pipelines.Instance(index)
	if instance == nil {
		d.mu.Unlock()
		d.bridge.Force(pipelineKey(cameraID), previous)
		return fmt.Errorf("pipeline index %d is not loaded", index)
	}

	for otherID, bound := range d.bindings {
		if bound == index && otherID != cameraID {
			d.mu.Unlock()
			d.bridge.Force(pipelineKey(cameraID), previous)
			log.Warn().
				Str("camera_id", cameraID).
				Str("holder", otherID).
				Int("index", index).
				Msg("Pipeline index already bound to another camera, rejecting")
			return fmt.Errorf("pipeline index %d is already bound to camera %s", index, otherID)
		}
	}

	d.clearSettingListenersLocked(cameraID)
	d.bindings[cameraID] = index
	d.mu.Unlock()

	d.bridge.Publish(pipelineKey(cameraID), index)

	settings := d.pipelines.Settings(index)
	if settings != nil {
		d.pushSettingsToDevice(cam, settings)
		for _, key := range settings.Schema().Keys() {
			key := key
			d.listenSetting(cameraID, syncbus.Key("camera", cameraID, "settings", key), func(_ string, value interface{}) {
				if err := d.UpdateSetting(key, cameraID, value); err != nil {
					log.Warn().Err(err).Str("camera_id", cameraID).Str("key", key).Msg("Remote setting update rejected")
				}
			})
		}
	}

	if aware, ok := instance.(pipeline.ResultAware); ok {
		aware.SetResultPublisher(&resultPublisher{bridge: d.bridge, cameraID: cameraID})
	}

	log.Info().
		Str("camera_id", cameraID).
		Int("index", index).
		Str("type", d.pipelines.Type(index)).
		Msg("Pipeline bound")
	return nil
}

// UpdateSetting writes a value into the bound pipeline's settings object,
// mirrors it onto the matching device property, and writes it back to the
// bus only when the cached bus value differs. That asymmetry is the echo
// suppression: a bus-originated change never goes back out.
func (d *Dispatcher) UpdateSetting(key, cameraID string, value interface{}) error {
	cam, ok := d.cameras.Camera(cameraID)
	if !ok {
		return fmt.Errorf("camera %s is not registered", cameraID)
	}

	index := d.Binding(cameraID)
	settings := d.pipelines.Settings(index)
	if settings == nil {
		return fmt.Errorf("camera %s has no bound pipeline", cameraID)
	}

	if err := settings.Set(key, value); err != nil {
		return err
	}

	for _, sp := range settings.Schema() {
		if sp.Key != key || sp.DeviceProperty == "" {
			continue
		}
		if n, ok := asFloat(value); ok {
			if err := cam.Device.SetProperty(sp.DeviceProperty, n); err != nil {
				log.Debug().Err(err).Str("camera_id", cameraID).Str("property", sp.DeviceProperty).Msg("Device property write failed")
			}
		}
	}

	stored, _ := settings.Get(key)
	d.bridge.Publish(syncbus.Key("camera", cameraID, "settings", key), stored)
	return nil
}

// SetViewSelector records which element of a multi-frame result is
// forwarded for the camera.
func (d *Dispatcher) SetViewSelector(cameraID, selector string) {
	d.mu.Lock()
	d.selectors[cameraID] = selector
	d.mu.Unlock()
	log.Debug().Str("camera_id", cameraID).Str("selector", selector).Msg("View selector changed")
}

// ViewSelector returns the camera's current view selector.
func (d *Dispatcher) ViewSelector(cameraID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selectors[cameraID]
}

// Binding returns the pipeline index bound to the camera, InvalidPipeline
// when idle.
func (d *Dispatcher) Binding(cameraID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if idx, ok := d.bindings[cameraID]; ok {
		return idx
	}
	return models.InvalidPipeline
}

// rebindAfterRemoval is the listener on the pipeline-removed event: every
// camera bound to the removed index falls back to its configured default.
// When the removed index is the default itself the camera is left unbound on
// purpose; guessing an alternative pipeline would be worse than going inert.
func (d *Dispatcher) rebindAfterRemoval(removed int) {
	d.mu.RLock()
	var affected []string
	for id, bound := range d.bindings {
		if bound == removed {
			affected = append(affected, id)
		}
	}
	d.mu.RUnlock()

	for _, id := range affected {
		def := models.InvalidPipeline
		if cam, ok := d.cameras.Camera(id); ok {
			def = d.defaultPipeline(cam)
		}
		if def == removed || def == models.InvalidPipeline {
			log.Warn().
				Str("camera_id", id).
				Int("removed", removed).
				Msg("Removed pipeline was the camera's default, leaving camera unbound")
			if err := d.SetPipelineByIndex(id, models.InvalidPipeline); err != nil {
				log.Error().Err(err).Str("camera_id", id).Msg("Failed to unbind camera")
			}
			continue
		}
		if err := d.SetPipelineByIndex(id, def); err != nil {
			log.Warn().Err(err).Str("camera_id", id).Int("index", def).Msg("Fallback to default pipeline failed, leaving camera unbound")
			if err := d.SetPipelineByIndex(id, models.InvalidPipeline); err != nil {
				log.Error().Err(err).Str("camera_id", id).Msg("Failed to unbind camera")
			}
		}
	}
}

func (d *Dispatcher) pushSettingsToDevice(cam *camera.Camera, settings *models.PipelineSettings) {
	for _, sp := range settings.Schema() {
		if sp.DeviceProperty == "" {
			continue
		}
		value, ok := settings.Get(sp.Key)
		if !ok {
			continue
		}
		if n, ok := asFloat(value); ok {
			if err := cam.Device.SetProperty(sp.DeviceProperty, n); err != nil {
				log.Debug().
					Err(err).
					Str("camera_id", cam.Config.ID).
					Str("property", sp.DeviceProperty).
					Msg("Device property write failed")
			}
		}
	}
}

func (d *Dispatcher) listen(cameraID, key string, h syncbus.Handler) {
	unsub, err := d.bridge.Listen(key, h)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to subscribe to sync bus")
		return
	}
	d.mu.Lock()
	d.unsubs[cameraID] = append(d.unsubs[cameraID], unsub)
	d.mu.Unlock()
}

// listenSetting registers a per-settings-key listener that is torn down on
// the next rebind.
func (d *Dispatcher) listenSetting(cameraID, key string, h syncbus.Handler) {
	unsub, err := d.bridge.Listen(key, h)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to subscribe to sync bus")
		return
	}
	d.mu.Lock()
	d.unsubsSettings[cameraID] = append(d.unsubsSettings[cameraID], unsub)
	d.mu.Unlock()
}

func (d *Dispatcher) clearSettingListenersLocked(cameraID string) {
	for _, fn := range d.unsubsSettings[cameraID] {
		fn()
	}
	delete(d.unsubsSettings, cameraID)
}

func asInt(value interface{}) (int, bool) {
	n, ok := asFloat(value)
	return int(n), ok
}

func asFloat(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

type resultPublisher struct {
	bridge   *syncbus.Bridge
	cameraID string
}

func (p *resultPublisher) PublishResult(key string, value interface{}) {
	p.bridge.Publish(syncbus.Key("camera", p.cameraID, "results", key), value)
}

func pipelineKey(cameraID string) string {
	return syncbus.Key("camera", cameraID, "pipeline")
}

func viewKey(cameraID string) string {
	return syncbus.Key("camera", cameraID, "view")
}

func recordKey(cameraID string) string {
	return syncbus.Key("camera", cameraID, "record")
}
