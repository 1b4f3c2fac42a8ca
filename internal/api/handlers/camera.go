package handlers

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/helpers"
	"vision-runtime-go/internal/models"
	"vision-runtime-go/internal/services/camera"
	"vision-runtime-go/internal/services/dispatch"
	"vision-runtime-go/internal/services/pipeline"
)

type CameraHandler struct {
	cameras    *camera.Registry
	pipelines  *pipeline.Registry
	dispatcher *dispatch.Dispatcher
}

func NewCameraHandler(cams *camera.Registry, pipes *pipeline.Registry, disp *dispatch.Dispatcher) *CameraHandler {
	return &CameraHandler{
		cameras:    cams,
		pipelines:  pipes,
		dispatcher: disp,
	}
}

type cameraResponse struct {
	ID            string            `json:"id"`
	Nickname      string            `json:"nickname"`
	DevicePath    string            `json:"device_path"`
	Connected     bool              `json:"connected"`
	Recording     bool              `json:"recording"`
	Pipeline      int               `json:"pipeline"`
	PipelineType  string            `json:"pipeline_type,omitempty"`
	View          string            `json:"view"`
	Rotation      int               `json:"rotation"`
	StreamRes     models.Resolution `json:"stream_res"`
	FPS           float64           `json:"fps"`
	LatencyMs     float64           `json:"latency_ms"`
	FrameCount    int64             `json:"frame_count"`
	ErrorCount    int64             `json:"error_count"`
	DroppedFrames int64             `json:"dropped_frames"`
	LastFrameAt   string            `json:"last_frame_at,omitempty"`
}

func (h *CameraHandler) describe(cam *camera.Camera) cameraResponse {
	id := cam.Config.ID
	idx := h.dispatcher.Binding(id)
	fps, latency := cam.Stats()

	resp := cameraResponse{
		ID:            id,
		Nickname:      cam.Config.Nickname,
		DevicePath:    cam.Config.DevicePath,
		Connected:     cam.Device.IsConnected(),
		Recording:     cam.Recording(),
		Pipeline:      idx,
		View:          h.dispatcher.ViewSelector(id),
		Rotation:      cam.Config.Rotation,
		StreamRes:     cam.Sink.Resolution(),
		FPS:           fps,
		LatencyMs:     float64(latency.Microseconds()) / 1000.0,
		FrameCount:    atomic.LoadInt64(&cam.FrameCount),
		ErrorCount:    atomic.LoadInt64(&cam.ErrorCount),
		DroppedFrames: cam.Queue.Dropped(),
	}
	if idx != models.InvalidPipeline {
		resp.PipelineType = h.pipelines.Type(idx)
	}
	if t := cam.LastFrameTime(); !t.IsZero() {
		resp.LastFrameAt = t.Format(time.RFC3339Nano)
	}
	return resp
}

func (h *CameraHandler) ListCameras(c *gin.Context) {
	cams := h.cameras.Cameras()
	out := make([]cameraResponse, 0, len(cams))
	for _, cam := range cams {
		out = append(out, h.describe(cam))
	}
	c.JSON(http.StatusOK, gin.H{
		"cameras": out,
		"count":   len(out),
	})
}

func (h *CameraHandler) GetCamera(c *gin.Context) {
	cam, ok := h.cameras.Camera(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found"})
		return
	}
	c.JSON(http.StatusOK, h.describe(cam))
}

// GetSnapshot returns the most recently published frame as JPEG.
func (h *CameraHandler) GetSnapshot(c *gin.Context) {
	cam, ok := h.cameras.Camera(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found"})
		return
	}

	sink, ok := cam.Sink.(interface{ Latest() *models.Frame })
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "camera sink does not keep snapshots"})
		return
	}
	frame := sink.Latest()
	if frame == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame published yet"})
		return
	}

	jpeg, err := helpers.EncodeJPEG(frame, 80)
	if err != nil {
		log.Error().Err(err).Str("camera_id", cam.Config.ID).Msg("Snapshot encode failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", jpeg)
}

type setPipelineRequest struct {
	Index int `json:"index"`
}

// SetPipeline rebinds the camera. A conflicting index is a 409, not a steal.
func (h *CameraHandler) SetPipeline(c *gin.Context) {
	id := c.Param("id")

	var req setPipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.dispatcher.SetPipelineByIndex(id, req.Index); err != nil {
		log.Warn().Err(err).Str("camera_id", id).Int("index", req.Index).Msg("Pipeline bind rejected")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"camera_id": id, "pipeline": req.Index})
}

func (h *CameraHandler) SetDefaultPipeline(c *gin.Context) {
	id := c.Param("id")

	var req setPipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.pipelines.SetDefaultPipeline(id, req.Index); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"camera_id": id, "default_pipeline": req.Index})
}

type settingRequest struct {
	Value interface{} `json:"value"`
}

func (h *CameraHandler) UpdateSetting(c *gin.Context) {
	id := c.Param("id")
	key := c.Param("key")

	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.dispatcher.UpdateSetting(key, id, req.Value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"camera_id": id, "key": key, "value": req.Value})
}

type viewRequest struct {
	Selector string `json:"selector" binding:"required"`
}

func (h *CameraHandler) SetView(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.cameras.Camera(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found"})
		return
	}

	var req viewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := models.ParseViewSelector(req.Selector); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.dispatcher.SetViewSelector(id, req.Selector)
	c.JSON(http.StatusOK, gin.H{"camera_id": id, "view": req.Selector})
}

type recordRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *CameraHandler) SetRecording(c *gin.Context) {
	id := c.Param("id")

	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.cameras.SetRecording(id, *req.Enabled); err != nil {
		log.Error().Err(err).Str("camera_id", id).Msg("Record toggle failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Info().Str("camera_id", id).Bool("enabled", *req.Enabled).Msg("Recording toggled")
	c.JSON(http.StatusOK, gin.H{"camera_id": id, "recording": *req.Enabled})
}
