package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/services/camera"
)

// StreamMJPEG serves the camera's output as a multipart MJPEG stream, one
// part per published frame. Keepalive parts re-send the latest frame when
// the camera goes quiet so proxies do not drop the connection.
func (h *CameraHandler) StreamMJPEG(c *gin.Context) {
	cam, ok := h.cameras.Camera(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found"})
		return
	}

	sink, ok := cam.Sink.(*camera.StreamSink)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "camera sink does not stream"})
		return
	}

	w := c.Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	const boundary = "frame"
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writePart := func(jpeg []byte) bool {
		if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "Content-Type: image/jpeg\r\n"); err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg)); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	notify, cancel := sink.Subscribe()
	defer cancel()

	log.Debug().Str("camera_id", cam.Config.ID).Msg("MJPEG streamer attached")

	if first := sink.LatestJPEG(); len(first) > 0 {
		if !writePart(first) {
			return
		}
	}

	keepalive := time.NewTicker(2 * time.Second)
	defer keepalive.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
			if jpeg := sink.LatestJPEG(); len(jpeg) > 0 {
				if !writePart(jpeg) {
					return
				}
			}
		case <-keepalive.C:
			if jpeg := sink.LatestJPEG(); len(jpeg) > 0 {
				if !writePart(jpeg) {
					return
				}
			}
		}
	}
}
