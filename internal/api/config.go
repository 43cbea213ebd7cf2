// Package api provides the HTTP API server for the demoscope service.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/demoscope-io/demoscope/internal/config"
)

const (
	defaultPort          int   = 8080
	maxPort              int   = 65535
	defaultHost                = "0.0.0.0"
	defaultCORSMaxAge    int   = 86400
	defaultTimeout             = 30 * time.Second
	defaultLogLevel            = slog.LevelInfo
	defaultMaxUploadSize int64 = 10485760 // 10 MB (10 * 1024 * 1024 bytes)
	defaultGlobalRPS     int   = 50
	defaultClientRPS     int   = 10
)

var (
	// ErrInvalidPort indicates the port number is outside valid range (1-65535).
	ErrInvalidPort = errors.New("invalid port")

	// ErrEmptyHost indicates the server host address is empty.
	ErrEmptyHost = errors.New("host cannot be empty")

	// ErrInvalidReadTimeout indicates the read timeout is zero or negative.
	ErrInvalidReadTimeout = errors.New("read timeout must be positive")

	// ErrInvalidWriteTimeout indicates the write timeout is zero or negative.
	ErrInvalidWriteTimeout = errors.New("write timeout must be positive")

	// ErrInvalidShutdownTimeout indicates the shutdown timeout is zero or negative.
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")

	// ErrInvalidMaxUploadSize indicates the max upload size is zero or negative.
	ErrInvalidMaxUploadSize = errors.New("max upload size must be positive")
)

// ServerConfig holds HTTP server configuration.
// Pure configuration only - no runtime dependencies.
type ServerConfig struct {
	Port               int
	Host               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	LogLevel           slog.Level
	MaxUploadSize      int64
	GlobalRPS          int
	ClientRPS          int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSMaxAge         int
}

// LoadServerConfig loads server configuration from environment variables with
// sensible defaults.
func LoadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            config.GetEnvInt("DEMOSCOPE_SERVER_PORT", defaultPort),
		Host:            config.GetEnvStr("DEMOSCOPE_SERVER_HOST", defaultHost),
		ReadTimeout:     config.GetEnvDuration("DEMOSCOPE_SERVER_READ_TIMEOUT", defaultTimeout),
		WriteTimeout:    config.GetEnvDuration("DEMOSCOPE_SERVER_WRITE_TIMEOUT", defaultTimeout),
		ShutdownTimeout: config.GetEnvDuration("DEMOSCOPE_SERVER_SHUTDOWN_TIMEOUT", defaultTimeout),
		LogLevel:        config.GetEnvLogLevel("DEMOSCOPE_SERVER_LOG_LEVEL", defaultLogLevel),
		MaxUploadSize:   config.GetEnvInt64("DEMOSCOPE_MAX_UPLOAD_SIZE", defaultMaxUploadSize),
		GlobalRPS:       config.GetEnvInt("DEMOSCOPE_RATE_LIMIT_GLOBAL_RPS", defaultGlobalRPS),
		ClientRPS:       config.GetEnvInt("DEMOSCOPE_RATE_LIMIT_CLIENT_RPS", defaultClientRPS),
		CORSAllowedOrigins: config.ParseCommaSeparatedList(
			config.GetEnvStr("DEMOSCOPE_CORS_ALLOWED_ORIGINS", "*"),
		), // "*" is a development default - restrict in production
		CORSAllowedMethods: config.ParseCommaSeparatedList(
			config.GetEnvStr("DEMOSCOPE_CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
		),
		CORSAllowedHeaders: config.ParseCommaSeparatedList(
			config.GetEnvStr("DEMOSCOPE_CORS_ALLOWED_HEADERS", "Content-Type,X-Correlation-ID"),
		),
		CORSMaxAge: config.GetEnvInt("DEMOSCOPE_CORS_MAX_AGE", defaultCORSMaxAge),
	}
}

// Validate checks if the server configuration is valid.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	if c.Host == "" {
		return ErrEmptyHost
	}

	if c.ReadTimeout <= 0 {
		return ErrInvalidReadTimeout
	}

	if c.WriteTimeout <= 0 {
		return ErrInvalidWriteTimeout
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if c.MaxUploadSize <= 0 {
		return ErrInvalidMaxUploadSize
	}

	return nil
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAllowedOrigins returns the CORS allowed origins.
func (c *ServerConfig) GetAllowedOrigins() []string { return c.CORSAllowedOrigins }

// GetAllowedMethods returns the CORS allowed methods.
func (c *ServerConfig) GetAllowedMethods() []string { return c.CORSAllowedMethods }

// GetAllowedHeaders returns the CORS allowed headers.
func (c *ServerConfig) GetAllowedHeaders() []string { return c.CORSAllowedHeaders }

// GetMaxAge returns the CORS preflight max age in seconds.
func (c *ServerConfig) GetMaxAge() int { return c.CORSMaxAge }
