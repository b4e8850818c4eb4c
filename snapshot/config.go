package snapshot

import (
	"code.emberchain.io/ember/config/encoding"
	"code.emberchain.io/ember/logging"
)

const namedLogger = "snapshot"

type Config struct {
	Level      encoding.LogLevel `choice:"debug" choice:"info" choice:"warning" choice:"error" description:"Logging level (default: info)" long:"log-level"`
	RetryLimit int               `description:"Maximum number of times a snapshot offer can be rejected before giving up" long:"max-retries"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:      encoding.LogLevel{Level: logging.InfoLevel},
		RetryLimit: 5,
	}
}
