package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteIndex, ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// PASSWORD RESET
	s.RegisterRouteHandler("GET "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordGetHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordPostHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteVerifyOTP, ChainMiddleware(s.VerifyOTPGetHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteVerifyOTP, ChainMiddleware(s.VerifyOTPPostHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteResetPassword, ChainMiddleware(s.ResetPasswordGetHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteResetPassword, ChainMiddleware(s.ResetPasswordPostHandler(), s.HTMLMiddleWare()...))

	// DASHBOARD (session required)
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteUsers, ChainMiddleware(s.UsersHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteClients, ChainMiddleware(s.ClientsHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteClients, ChainMiddleware(s.CreateClientHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteClient, ChainMiddleware(s.UpdateClientHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteClientDrop, ChainMiddleware(s.DeleteClientHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteJobs, ChainMiddleware(s.JobsHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteJob, ChainMiddleware(s.JobHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RoutePostJob, ChainMiddleware(s.PlaceholderHandler("Post a job", RoutePostJob), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSettings, ChainMiddleware(s.PlaceholderHandler("Settings", RouteSettings), s.PageMiddleware()...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPISession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())
	s.RegisterRouteFunc("GET "+RouteMetrics, s.MetricsHandler())

	// Static assets
	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.staticHandler(), s.StaticMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteFavicon, ChainMiddleware(s.faviconHandler(), s.StaticMiddleware()...))
}
