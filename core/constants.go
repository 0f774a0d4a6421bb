package core

import "time"

// Environment variable names used across the mindhive packages.
const (
	EnvNamespace   = "MINDHIVE_NAMESPACE"
	EnvDataDir     = "MINDHIVE_DATA_DIR"
	EnvDevMode     = "MINDHIVE_DEV_MODE"
	EnvRedisURL    = "MINDHIVE_REDIS_URL"
	EnvWalletPKFmt = "MINDX_WALLET_PK_%s" // %s is the sanitized entity ID
)

// DefaultRedisPrefix namespaces coordinator/memory keys mirrored to Redis.
const DefaultRedisPrefix = "mindhive:"

// DefaultChallengeExpiry is the Guardian challenge TTL used when no
// configuration value is supplied directly to a constructor.
const DefaultChallengeExpiry = 5 * time.Minute
