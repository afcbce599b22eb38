package config

import "time"

const (
	apiBaseURLVar       = "API_BASE_URL"
	publicBaseURLVar    = "NEXT_PUBLIC_BASE_URL"
	backendTimeoutVar   = "BACKEND_TIMEOUT"
	defaultBackendURL   = "http://localhost:3000"
	defaultBackendLimit = 10 * time.Second
)

type Backend struct{}

var _ BackendConfig = Backend{}

// GetAPIBaseURL returns the REST API base URL. NEXT_PUBLIC_BASE_URL is honoured
// so existing deployments keep working.
func (Backend) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, GetEnv(publicBaseURLVar, defaultBackendURL))
}

func (Backend) GetBackendTimeout() time.Duration {
	return GetEnvDuration(backendTimeoutVar, defaultBackendLimit)
}
