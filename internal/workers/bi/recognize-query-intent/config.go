// internal/workers/bi/recognize-query-intent/config.go
package recognizequeryintent

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
