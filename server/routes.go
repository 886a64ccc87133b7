package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// Device flow auth
	s.RegisterRouteHandler("POST "+RouteAuthInitiate, ChainMiddleware(s.AuthInitiateHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthStatus, ChainMiddleware(s.AuthStatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthCheck, ChainMiddleware(s.AuthCheckHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthUser, ChainMiddleware(s.AuthUserHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.AuthLogoutHandler(), s.APIMiddleware()...))

	// Assistant
	s.RegisterRouteHandler("POST "+RouteChat, ChainMiddleware(s.ChatHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteUpload, ChainMiddleware(s.UploadHandler(), s.APIMiddleware()...))
}
