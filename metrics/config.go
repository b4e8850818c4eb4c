package metrics

import (
	"code.emberchain.io/ember/config/encoding"
	"code.emberchain.io/ember/logging"
)

const namedLogger = "metrics"

// Config represents the configuration of the metric package
type Config struct {
	Level   encoding.LogLevel `long:"log-level"`
	Enabled bool              `description:"Whether to expose prometheus metrics" long:"enabled"`
	Port    int               `description:"The port to expose prometheus metrics on" long:"port"`
	Path    string            `description:"The HTTP path to expose the metrics on" long:"path"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:   encoding.LogLevel{Level: logging.InfoLevel},
		Enabled: false,
		Port:    2112,
		Path:    "/metrics",
	}
}
