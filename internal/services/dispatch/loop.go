package dispatch

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/logging"
	"vision-runtime-go/internal/models"
	"vision-runtime-go/internal/services/camera"
)

// runCamera is the processing worker: one per camera, alive until shutdown.
// A panicking pipeline kills the iteration, never the worker.
func (d *Dispatcher) runCamera(cam *camera.Camera) {
	defer d.wg.Done()

	clog := logging.ForCamera("dispatch", cam.Config.ID)
	defer func() {
		if r := recover(); r != nil {
			clog.Error().Interface("panic", r).Msg("Processing worker crashed")
		}
	}()

	clog.Info().Msg("Processing worker started")
	for {
		select {
		case <-d.stop:
			clog.Info().Msg("Processing worker stopped")
			return
		default:
		}

		start := time.Now()
		d.step(cam)

		// Pace to the device's native frame rate. A slow pipeline just runs
		// flat out; the sleep never goes negative.
		period := time.Second / time.Duration(d.targetFPS(cam))
		if remaining := period - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}

		if total := time.Since(start); total > 0 {
			cam.SetStats(1.0/total.Seconds(), total)
		}
	}
}

// step runs one iteration of the processing loop: pop the freshest frame,
// apply the mount rotation, run the bound pipeline, route the selected view
// to the camera's sink, report metrics. Exposed as a method so tests can
// drive iterations without the pacing loop.
func (d *Dispatcher) step(cam *camera.Camera) {
	frame, ok := cam.Queue.PopNewest()
	if !ok {
		return
	}
	captureLatency := time.Since(frame.Timestamp)

	if turns := cam.Config.Rotation; turns%4 != 0 {
		frame = frame.Rotate90(turns)
	}

	id := cam.Config.ID
	index := d.Binding(id)

	var result models.FrameResult
	processStart := time.Now()
	if index == models.InvalidPipeline {
		// Idle camera: the raw stream still flows.
		result = models.SingleResult(frame)
	} else {
		result = d.invoke(cam, index, frame)
	}
	processLatency := time.Since(processStart)

	if out := result.Pick(d.ViewSelector(id)); out != nil {
		if err := d.cameras.PublishFrame(out, id); err != nil {
			log.Warn().Err(err).Str("camera_id", id).Msg("Frame publish failed")
		}
	}

	d.reporter.Report(id, cam, captureLatency, processLatency)
}

// invoke runs the bound pipeline on one frame. Errors and panics are
// contained here: either downgrades the iteration to no output and bumps the
// camera's error counter.
func (d *Dispatcher) invoke(cam *camera.Camera, index int, frame *models.Frame) (result models.FrameResult) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&cam.ErrorCount, 1)
			log.Error().
				Interface("panic", r).
				Str("camera_id", cam.Config.ID).
				Int("pipeline", index).
				Str("type", d.pipelines.Type(index)).
				Msg("Pipeline panicked, dropping frame")
			result = models.NoResult()
		}
	}()

	pipe := d.pipelines.Instance(index)
	if pipe == nil {
		return models.SingleResult(frame)
	}

	res, err := pipe.ProcessFrame(frame, frame.Timestamp)
	if err != nil {
		atomic.AddInt64(&cam.ErrorCount, 1)
		log.Error().
			Err(err).
			Str("camera_id", cam.Config.ID).
			Int("pipeline", index).
			Str("type", d.pipelines.Type(index)).
			Msg("Pipeline returned error, dropping frame")
		return models.NoResult()
	}
	return res
}

// targetFPS is the rate the loop is paced to: the device's negotiated frame
// rate, or the configured stream rate when the device does not report one.
func (d *Dispatcher) targetFPS(cam *camera.Camera) int {
	if fps := cam.Device.MaxFPS(); fps > 0 {
		return fps
	}
	if fps := cam.Config.StreamRes.FPS; fps > 0 {
		return fps
	}
	return d.cfg.DefaultStreamFPS
}
