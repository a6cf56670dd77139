package config

import "time"

const (
	EnvDev     = "DEV"
	EnvStaging = "STAGING"
	EnvProd    = "PROD"
)

// EnvVars is the raw environment. Getters on it implement the per-concern interfaces.
type EnvVars struct {
	Env      string `env:"ENV" envDefault:"DEV" validate:"required,oneof=DEV STAGING PROD"`
	AppName  string `env:"APP_NAME" envDefault:"Moda Sarita"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`

	APIURL         string        `env:"API_URL,required" validate:"required,url"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s" validate:"min=0"`
	GatewayRPS     float64       `env:"GATEWAY_RPS" envDefault:"0" validate:"min=0"`
	GatewayBurst   int           `env:"GATEWAY_BURST" envDefault:"1" validate:"min=1"`

	StoreDriver     string `env:"STORE_DRIVER" envDefault:"file" validate:"oneof=memory file sqlite redis"`
	StorePath       string `env:"STORE_PATH" envDefault:"./data/session.json" validate:"required_if=StoreDriver file,required_if=StoreDriver sqlite"`
	StorePassphrase string `env:"STORE_PASSPHRASE"`
	RedisAddr       string `env:"REDIS_ADDR" validate:"required_if=StoreDriver redis"`
	RedisPrefix     string `env:"REDIS_PREFIX" envDefault:"modasarita:auth"`
}

var _ EnvConfig = (*EnvVars)(nil)

func (e *EnvVars) GetAppName() string {
	return e.AppName
}

func (e *EnvVars) GetEnv() string {
	return e.Env
}

func (e *EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e *EnvVars) IsDev() bool {
	return e.Env == EnvDev
}
