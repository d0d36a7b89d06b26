package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	cameras := s.router.Group("/cameras")
	{
		cameras.GET("", s.cameraHandler.ListCameras)
		cameras.GET("/:id", s.cameraHandler.GetCameraStatus)
		cameras.GET("/:id/counts", s.cameraHandler.GetCounts)
	}

	s.router.GET("/counts/history", s.historyHandler.GetHistory)

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}
}
