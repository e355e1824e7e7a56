package internal

// Option configures an engine run before it starts.
type Option func(*application)

type application struct {
	config *Config
}

// WithConfig supplies the engine configuration. Run and RunMCP both require
// it.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}
