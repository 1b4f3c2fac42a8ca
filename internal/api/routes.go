package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.Info)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	cameras := s.router.Group("/cameras")
	{
		cameras.GET("", s.cameraHandler.ListCameras)
		cameras.GET("/:id", s.cameraHandler.GetCamera)
		cameras.GET("/:id/snapshot", s.cameraHandler.GetSnapshot)
		cameras.GET("/:id/stream", s.cameraHandler.StreamMJPEG)
		cameras.PUT("/:id/pipeline", s.cameraHandler.SetPipeline)
		cameras.PUT("/:id/default_pipeline", s.cameraHandler.SetDefaultPipeline)
		cameras.PUT("/:id/settings/:key", s.cameraHandler.UpdateSetting)
		cameras.PUT("/:id/view", s.cameraHandler.SetView)
		cameras.POST("/:id/record", s.cameraHandler.SetRecording)
	}

	pipelines := s.router.Group("/pipelines")
	{
		pipelines.GET("", s.pipelineHandler.ListPipelines)
		pipelines.GET("/types", s.pipelineHandler.ListTypes)
		pipelines.POST("", s.pipelineHandler.AddPipeline)
		pipelines.DELETE("/:index", s.pipelineHandler.RemovePipeline)
	}
}
