package types

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"` // currently "postgres"
	DSN    string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// GeneratorConfig configures the content-generation backend.
type GeneratorConfig struct {
	Type GeneratorType `yaml:"type" json:"type"`

	// anthropic backend
	APIKey    string  `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
	Model     string  `yaml:"model,omitempty" json:"model,omitempty"`
	MaxTokens int     `yaml:"maxTokens,omitempty" json:"maxTokens,omitempty"`
	Temp      float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`

	// http backend
	URL     string            `yaml:"url,omitempty" json:"url,omitempty"`
	Method  string            `yaml:"method,omitempty" json:"method,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// command backend
	Command string `yaml:"command,omitempty" json:"command,omitempty"`

	// Timeout in seconds for one generation call; 0 means default.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// SchedulerConfig configures the due-schedule processing loop.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// TickInterval is a duration string, e.g. "60s".
	TickInterval string `yaml:"tickInterval,omitempty" json:"tickInterval,omitempty"`
	// DueLimit caps how many due schedules one tick processes. Zero means
	// the default of 5.
	DueLimit int `yaml:"dueLimit,omitempty" json:"dueLimit,omitempty"`
	// SearchHorizonDays bounds the rule evaluator's forward search. Zero
	// means the default of 60.
	SearchHorizonDays int `yaml:"searchHorizonDays,omitempty" json:"searchHorizonDays,omitempty"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty" json:"addr,omitempty"`
	// APIKey, when set, is required in the X-API-Key header on every
	// request except the health check.
	APIKey string `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
}

// AlertConfig configures one alert sink.
type AlertConfig struct {
	Type AlertType `yaml:"type" json:"type"`
	URL  string    `yaml:"url,omitempty" json:"url,omitempty"`
	Path string    `yaml:"path,omitempty" json:"path,omitempty"`
}

// ProjectConfig is the top-level draftcue.yaml configuration.
type ProjectConfig struct {
	Store     StoreConfig      `yaml:"store" json:"store"`
	Generator GeneratorConfig  `yaml:"generator" json:"generator"`
	Scheduler *SchedulerConfig `yaml:"scheduler,omitempty" json:"scheduler,omitempty"`
	Server    *ServerConfig    `yaml:"server,omitempty" json:"server,omitempty"`
	Alerts    []AlertConfig    `yaml:"alerts,omitempty" json:"alerts,omitempty"`
}
