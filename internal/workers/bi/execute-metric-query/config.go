// internal/workers/bi/execute-metric-query/config.go
package executemetricquery

import "time"

type Config struct {
	Timeout time.Duration
	MaxRows int
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		MaxRows: 1000,
	}
}
