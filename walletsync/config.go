package walletsync

import (
	"code.emberchain.io/ember/config/encoding"
	"code.emberchain.io/ember/logging"
)

const namedLogger = "walletsync"

type Config struct {
	Level encoding.LogLevel `choice:"debug" choice:"info" choice:"warning" choice:"error" description:"Logging level (default: info)" long:"log-level"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
	}
}
