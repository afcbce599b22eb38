package config

import "time"

const (
	sessionSecretVar = "SESSION_SECRET"
	sessionMaxAgeVar = "SESSION_MAX_AGE"
	refreshSkewVar   = "REFRESH_SKEW"
	sessionStoreVar  = "SESSION_STORE"
	redisAddrVar     = "REDIS_ADDR"
	redisPasswordVar = "REDIS_PASSWORD"
	redisDBVar       = "REDIS_DB"
	redisPrefixVar   = "REDIS_PREFIX"

	devSessionSecret = "dev-only-session-secret-change-me"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Session struct{}

var _ SessionConfig = Session{}

// GetSessionSecret returns the secret the session cookie signing key is derived from.
func (Session) GetSessionSecret() string {
	return GetEnv(sessionSecretVar, devSessionSecret)
}

func (Session) GetSessionMaxAge() time.Duration {
	return GetEnvDuration(sessionMaxAgeVar, 30*24*time.Hour)
}

// GetRefreshSkew is how long before expiry an access token is refreshed proactively.
func (Session) GetRefreshSkew() time.Duration {
	return GetEnvDuration(refreshSkewVar, 5*time.Second)
}

func (Session) GetSessionStore() string {
	return GetEnv(sessionStoreVar, SessionStoreMemory)
}

func (Session) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "")
}

func (Session) GetRedisPassword() string {
	return GetEnv(redisPasswordVar, "")
}

func (Session) GetRedisDB() int {
	return GetEnvInt(redisDBVar, 0)
}

func (Session) GetRedisPrefix() string {
	return GetEnv(redisPrefixVar, "dashboard:")
}
