package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/services/pipeline"
)

type PipelineHandler struct {
	pipelines *pipeline.Registry
}

func NewPipelineHandler(pipes *pipeline.Registry) *PipelineHandler {
	return &PipelineHandler{pipelines: pipes}
}

type pipelineResponse struct {
	Index    int                    `json:"index"`
	Name     string                 `json:"name"`
	Type     string                 `json:"type"`
	Settings map[string]interface{} `json:"settings"`
}

func (h *PipelineHandler) ListPipelines(c *gin.Context) {
	indices := h.pipelines.Indices()
	out := make([]pipelineResponse, 0, len(indices))
	for _, idx := range indices {
		resp := pipelineResponse{
			Index: idx,
			Name:  h.pipelines.Name(idx),
			Type:  h.pipelines.Type(idx),
		}
		if settings := h.pipelines.Settings(idx); settings != nil {
			resp.Settings = settings.Snapshot()
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, gin.H{
		"pipelines": out,
		"count":     len(out),
	})
}

func (h *PipelineHandler) ListTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": h.pipelines.Types()})
}

type addPipelineRequest struct {
	Index    int                    `json:"index"`
	Name     string                 `json:"name"`
	Type     string                 `json:"type" binding:"required"`
	Settings map[string]interface{} `json:"settings"`
}

func (h *PipelineHandler) AddPipeline(c *gin.Context) {
	var req addPipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.pipelines.AddPipeline(req.Index, req.Name, req.Type, req.Settings); err != nil {
		log.Warn().Err(err).Int("index", req.Index).Str("type", req.Type).Msg("Pipeline add rejected")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	log.Info().Int("index", req.Index).Str("type", req.Type).Str("name", req.Name).Msg("Pipeline added")
	c.JSON(http.StatusOK, gin.H{"index": req.Index, "type": req.Type})
}

func (h *PipelineHandler) RemovePipeline(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return
	}

	if err := h.pipelines.RemovePipeline(index); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	log.Info().Int("index", index).Msg("Pipeline removed")
	c.JSON(http.StatusOK, gin.H{"index": index})
}
