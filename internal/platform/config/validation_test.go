package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a fully valid configuration for testing.
func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "tech-quiz-service",
			Version:     "1.0.0",
			Environment: "test",
		},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
			MaxRequestSize:  DefaultMaxRequestSize,
			AllowedOrigins:  []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Client: ClientConfig{
			Timeout: 5 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 100 * time.Millisecond,
				MaxInterval:     2 * time.Second,
				Multiplier:      2.0,
				JitterFactor:    0.25,
			},
			CircuitBreaker: CircuitBreakerConfig{
				MaxFailures:   5,
				Timeout:       30 * time.Second,
				HalfOpenLimit: 2,
			},
			Transport: TransportConfig{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Services: ServicesConfig{
			Questions: QuestionServiceConfig{
				BaseURL: "http://localhost:3001",
				Name:    "question-service",
				Path:    DefaultQuestionsPath,
			},
		},
		Quiz: QuizConfig{
			FetchTimeout:  10 * time.Second,
			SessionTTL:    30 * time.Minute,
			SweepInterval: time.Minute,
			MaxSessions:   100,
		},
	}
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_FieldErrors(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectedMsg string
	}{
		{
			name:        "missing app name",
			mutate:      func(c *Config) { c.App.Name = "" },
			expectedMsg: "app.name is required",
		},
		{
			name:        "unknown environment",
			mutate:      func(c *Config) { c.App.Environment = "staging" },
			expectedMsg: "app.environment must be one of: local dev qa prod test",
		},
		{
			name:        "port out of range",
			mutate:      func(c *Config) { c.Server.Port = 70000 },
			expectedMsg: "server.port must be at most 65535",
		},
		{
			name:        "blank allowed origin",
			mutate:      func(c *Config) { c.Server.AllowedOrigins = []string{""} },
			expectedMsg: "server.allowed_origins[0] is required",
		},
		{
			name:        "retry max interval too short",
			mutate:      func(c *Config) { c.Client.Retry.MaxInterval = 50 * time.Millisecond },
			expectedMsg: "client.retry.max_interval must be at least 100ms",
		},
		{
			name:        "unknown log level",
			mutate:      func(c *Config) { c.Log.Level = "verbose" },
			expectedMsg: "log.level must be one of: trace debug info warn error",
		},
		{
			name: "log file without path",
			mutate: func(c *Config) {
				c.Log.File.Enabled = true
				c.Log.File.Path = ""
			},
			expectedMsg: "log.file.path is required when Enabled true",
		},
		{
			name: "telemetry without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.ServiceName = "quiz"
			},
			expectedMsg: "telemetry.endpoint is required when Enabled true",
		},
		{
			name:        "retry multiplier too small",
			mutate:      func(c *Config) { c.Client.Retry.Multiplier = 1.0 },
			expectedMsg: "client.retry.multiplier must be at least 1.1",
		},
		{
			name:        "question source url invalid",
			mutate:      func(c *Config) { c.Services.Questions.BaseURL = "not a url" },
			expectedMsg: "services.questions.base_url must be a valid URL",
		},
		{
			name:        "question path without leading slash",
			mutate:      func(c *Config) { c.Services.Questions.Path = "api/questions/random" },
			expectedMsg: `services.questions.path must start with "/"`,
		},
		{
			name:        "fetch timeout too small",
			mutate:      func(c *Config) { c.Quiz.FetchTimeout = time.Millisecond },
			expectedMsg: "quiz.fetch_timeout must be at least 100ms",
		},
		{
			name:        "zero max sessions",
			mutate:      func(c *Config) { c.Quiz.MaxSessions = 0 },
			expectedMsg: "quiz.max_sessions is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedMsg)
		})
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.App.Name = ""
	cfg.App.Version = ""
	cfg.Quiz.SessionTTL = 0

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "config validation failed")
	assert.Contains(t, msg, "app.name")
	assert.Contains(t, msg, "app.version")
	assert.Contains(t, msg, "quiz.session_ttl")
}

func TestFormatFieldPath(t *testing.T) {
	tests := []struct {
		namespace string
		expected  string
	}{
		{"Config.server.port", "server.port"},
		{"Config.client.retry.max_attempts", "client.retry.max_attempts"},
		{"Config", "Config"},
	}

	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFieldPath(tt.namespace))
		})
	}
}
