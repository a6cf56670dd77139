package config

import "time"

type GatewayConfig interface {
	GetAPIURL() string
	GetRequestTimeout() time.Duration
	GetRateLimit() (perSecond float64, burst int)
}

var _ GatewayConfig = (*EnvVars)(nil)

// GetAPIURL returns the base URL of the remote authentication service (e.g., "https://api.modasarita.mx")
func (e *EnvVars) GetAPIURL() string {
	return e.APIURL
}

func (e *EnvVars) GetRequestTimeout() time.Duration {
	return e.RequestTimeout
}

// GetRateLimit returns the client-side request pacing. A zero rate disables pacing.
func (e *EnvVars) GetRateLimit() (float64, int) {
	return e.GatewayRPS, e.GatewayBurst
}
