package config

import (
	"fmt"
	"time"
)

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	BackendConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type SessionConfig interface {
	GetSessionSecret() string
	GetSessionMaxAge() time.Duration
	GetRefreshSkew() time.Duration
	GetSessionStore() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
}

type BackendConfig interface {
	GetAPIBaseURL() string
	GetBackendTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Backend

	port string
}

func New() Config {
	return mainConfig{}
}

// WithPort returns a config whose port takes precedence over the PORT env var.
func WithPort(c Config, port string) Config {
	mc, ok := c.(mainConfig)
	if !ok || port == "" {
		return c
	}
	mc.port = normalisePort(port)
	return mc
}

func (c mainConfig) GetPort() string {
	if c.port != "" {
		return c.port
	}
	return c.EnvVars.GetPort()
}

// Validate reports configuration that would make the server unsafe to run.
func Validate(c Config) error {
	if c.GetEnv() != devEnv && c.GetSessionSecret() == devSessionSecret {
		return fmt.Errorf("[config Validate] %s must be set outside %s", sessionSecretVar, devEnv)
	}
	if c.GetSessionMaxAge() <= 0 {
		return fmt.Errorf("[config Validate] %s must be positive", sessionMaxAgeVar)
	}
	if c.GetBackendTimeout() <= 0 {
		return fmt.Errorf("[config Validate] %s must be positive", backendTimeoutVar)
	}
	switch c.GetSessionStore() {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.GetRedisAddr() == "" {
			return fmt.Errorf("[config Validate] %s is required when %s=%s", redisAddrVar, sessionStoreVar, SessionStoreRedis)
		}
	default:
		return fmt.Errorf("[config Validate] unknown %s %q", sessionStoreVar, c.GetSessionStore())
	}
	return nil
}
