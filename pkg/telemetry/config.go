package telemetry

// Config carries the telemetry configuration for one invocation.
type Config struct {
	// ServiceName identifies the tool in traces and metrics.
	ServiceName string

	// ServiceVersion is the build version.
	ServiceVersion string

	// Logging configures structured logging.
	Logging LoggingConfig

	// Tracing configures span export.
	Tracing TracingConfig

	// Metrics configures the Prometheus registry.
	Metrics MetricsConfig
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (debug, info, warn, error).
	Level string

	// Format specifies the log format (console, json).
	Format string
}

// TracingConfig configures span export. A short-lived CLI only ever exports
// to stdout; the zero value disables tracing entirely.
type TracingConfig struct {
	// Enabled controls whether spans are recorded and exported.
	Enabled bool
}

// MetricsConfig configures the Prometheus registry.
type MetricsConfig struct {
	// Enabled controls whether counters are registered.
	Enabled bool

	// ListenAddr optionally serves a /metrics scrape endpoint for the
	// duration of the run, e.g. ":9464". Empty disables the listener.
	ListenAddr string

	// Namespace prefixes every metric name.
	Namespace string
}

// DefaultConfig returns the configuration used when no flags override it.
func DefaultConfig(version string) Config {
	return Config{
		ServiceName:    "nimbusctl",
		ServiceVersion: version,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "nimbusctl",
		},
	}
}
