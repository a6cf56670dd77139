package config

const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type StoreConfig interface {
	GetStoreDriver() string
	GetStorePath() string
	GetStorePassphrase() string
	GetRedisAddr() string
	GetRedisPrefix() string
}

var _ StoreConfig = (*EnvVars)(nil)

func (e *EnvVars) GetStoreDriver() string {
	return e.StoreDriver
}

func (e *EnvVars) GetStorePath() string {
	return e.StorePath
}

// GetStorePassphrase returns the passphrase used to seal the file store. Empty means plaintext.
func (e *EnvVars) GetStorePassphrase() string {
	return e.StorePassphrase
}

func (e *EnvVars) GetRedisAddr() string {
	return e.RedisAddr
}

func (e *EnvVars) GetRedisPrefix() string {
	return e.RedisPrefix
}
