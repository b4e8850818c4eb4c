package storage

import (
	"errors"

	"code.emberchain.io/ember/config/encoding"
	"code.emberchain.io/ember/logging"
)

const (
	namedLogger = "storage"

	goLevelDB = "GOLevelDB"
	memDB     = "memory"
)

var ErrInvalidStorageMethod = errors.New("invalid storage method")

type Config struct {
	Level   encoding.LogLevel `choice:"debug" choice:"info" choice:"warning" choice:"error" description:"Logging level (default: info)" long:"log-level"`
	Storage string            `choice:"GOLevelDB" choice:"memory" description:"Storage type to use" long:"storage"`
	DBPath  string            `description:"Path to database" long:"db-path"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:   encoding.LogLevel{Level: logging.InfoLevel},
		Storage: goLevelDB,
	}
}

// NewTestConfig keeps everything in memory, for tests.
func NewTestConfig() Config {
	cfg := NewDefaultConfig()
	cfg.Storage = memDB
	return cfg
}

func (c Config) validate() error {
	switch c.Storage {
	case memDB:
		if len(c.DBPath) != 0 {
			return errors.New("dbpath cannot be set when storage method is in-memory")
		}
		return nil
	case goLevelDB:
		if len(c.DBPath) == 0 {
			return errors.New("dbpath is required for GOLevelDB storage")
		}
		return nil
	default:
		return ErrInvalidStorageMethod
	}
}
