package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteAuthPrefix = "/auth"
	RouteLogin      = "/auth/login"
	RouteLogout     = "/auth/logout"

	// Auth Routes - Password Reset
	RouteForgotPassword = "/auth/forgot-password"
	RouteVerifyOTP      = "/auth/verify-otp"
	RouteResetPassword  = "/auth/reset-password"

	// Dashboard Routes
	RouteIndex      = "/"
	RouteDashboard  = "/dashboard"
	RouteUsers      = "/users"
	RouteClients    = "/clients"
	RouteClient     = "/clients/{id}"
	RouteClientDrop = "/clients/{id}/delete"
	RouteJobs       = "/jobs"
	RouteJob        = "/jobs/{id}"
	RoutePostJob    = "/post-job"
	RouteSettings   = "/settings"

	// API Routes
	RouteAPISession = "/api/auth/session"
	RouteHealthz    = "/healthz"
	RouteMetrics    = "/metrics"

	// Static Asset Routes (patterns)
	RouteStatic  = "/static/"
	RouteFavicon = "/favicon.ico"
)

const callbackURLParam = "callbackUrl"
