// Package api is the local HTTP control surface: camera inventory, pipeline
// management, snapshots, and record toggles, mirroring what the sync bus
// exposes to remote dashboards.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/api/handlers"
	"vision-runtime-go/internal/runtime"
)

type Server struct {
	rt     *runtime.Runtime
	router *gin.Engine
	server *http.Server

	healthHandler   *handlers.HealthHandler
	cameraHandler   *handlers.CameraHandler
	pipelineHandler *handlers.PipelineHandler
}

func NewServer(rt *runtime.Runtime) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		rt:              rt,
		router:          router,
		healthHandler:   handlers.NewHealthHandler(rt.Store().NetworkID()),
		cameraHandler:   handlers.NewCameraHandler(rt.Cameras(), rt.Pipelines(), rt.Dispatcher()),
		pipelineHandler: handlers.NewPipelineHandler(rt.Pipelines()),
	}
}

func (s *Server) Setup() {
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.rt.Config().Port),
		Handler: s.router,
	}
}

// Start blocks in ListenAndServe until Stop is called.
func (s *Server) Start() error {
	log.Info().Int("port", s.rt.Config().Port).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("HTTP API stopping")
	return s.server.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
