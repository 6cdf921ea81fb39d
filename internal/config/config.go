package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	TxLog   TxLogConfig   `yaml:"txlog"`
	Lookup  LookupConfig  `yaml:"lookup"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int       `yaml:"port"`
	Host string    `yaml:"host"`
	TLS  TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Enabled      bool   `yaml:"enabled"`
	CertFile     string `yaml:"certFile"`
	KeyFile      string `yaml:"keyFile"`
	AutoGenerate bool   `yaml:"autoGenerate"` // Self-sign when no cert is configured
	StorePath    string `yaml:"storePath"`    // Where auto-generated certs live
}

// StorageConfig holds rule store configuration
type StorageConfig struct {
	Type string `yaml:"type"` // "memory" or "file"
	Path string `yaml:"path"` // Path for file storage
}

// TxLogConfig holds transaction log configuration
type TxLogConfig struct {
	MaxRecords int `yaml:"maxRecords"`
}

// LookupConfig holds entity lookup configuration for template db access
type LookupConfig struct {
	EntitiesFile string            `yaml:"entitiesFile"` // YAML fixture of lookup entities
	Bindings     map[string]string `yaml:"bindings"`     // request field -> model tag
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
			TLS: TLSConfig{
				Enabled:      false,
				AutoGenerate: true,
			},
		},
		Storage: StorageConfig{
			Type: "memory",
			Path: "./data",
		},
		TxLog: TxLogConfig{
			MaxRecords: 1000,
		},
		Lookup: LookupConfig{
			Bindings: map[string]string{"username": "user"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
