package graphmcp

// Config is the base configuration used by library mode via New().
type Config struct {
	Endpoint    EndpointConfig `json:"endpoint"`
	Pool        PoolConfig     `json:"pool"`
	Query       QueryConfig    `json:"query"`
	ReadOnly    bool           `json:"read_only"`
	Environment string         `json:"environment"` // "production" or "development"
}

// EndpointConfig holds the downstream graph service location. The API key
// is resolved at startup from the environment or an interactive prompt and
// is never serialized.
type EndpointConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"-"`
}

// PoolConfig holds per-graph connection pool settings. Durations are
// strings parsed with time.ParseDuration, like "5m" or "60s".
type PoolConfig struct {
	MaxConnectionsPerGraph int    `json:"max_connections_per_graph"`
	IdleTimeout            string `json:"idle_timeout"`
	MaxLifetime            string `json:"max_lifetime"`
	SweepInterval          string `json:"sweep_interval"`
}

// QueryConfig holds query execution settings.
type QueryConfig struct {
	TimeoutSeconds   int           `json:"timeout_seconds"`
	MaxQueryLength   int           `json:"max_query_length"`
	MaxResultRows    int           `json:"max_result_rows"`
	MaxResultSizeMB  int           `json:"max_result_size_mb"`
	AutoLimitEnabled bool          `json:"auto_limit_enabled"`
	TimeoutRules     []TimeoutRule `json:"timeout_rules"`
}

// TimeoutRule maps a query pattern to a specific timeout duration.
type TimeoutRule struct {
	Pattern        string `json:"pattern"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config
	Server  ServerSettings `json:"server"`
	Logging LoggingConfig  `json:"logging"`
}

// ServerSettings holds HTTP server settings for CLI mode.
type ServerSettings struct {
	Port               int    `json:"port"`
	HealthCheckEnabled bool   `json:"health_check_enabled"`
	HealthCheckPath    string `json:"health_check_path"`
	MetricsEnabled     bool   `json:"metrics_enabled"`
	MetricsPath        string `json:"metrics_path"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with the documented defaults: read-only,
// auto-limit on, production sanitization.
func DefaultConfig() Config {
	return Config{
		Pool: PoolConfig{
			MaxConnectionsPerGraph: 5,
			IdleTimeout:            "5m",
			MaxLifetime:            "30m",
			SweepInterval:          "60s",
		},
		Query: QueryConfig{
			TimeoutSeconds:   30,
			MaxQueryLength:   10000,
			MaxResultRows:    1000,
			MaxResultSizeMB:  10,
			AutoLimitEnabled: true,
		},
		ReadOnly:    true,
		Environment: "production",
	}
}
