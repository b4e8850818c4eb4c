package logging

// Config contains the configurable items for this package
type Config struct {
	Environment string `choice:"dev" choice:"prod" description:"Logger environment: console output for dev, JSON for prod" long:"environment"`
}

// NewDefaultConfig creates an instance of the package-specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Environment: "dev",
	}
}
