// internal/workers/bi/compile-metric-sql/config.go
package compilemetricsql

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
