package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v2"
)

// Config is the scan engine's runtime configuration: everything a CLI
// flag can also override. File and environment values are both optional;
// explicit flags always win over both.
type Config struct {
	AWS struct {
		Region   string `yaml:"region" json:"region"`
		Profile  string `yaml:"profile" json:"profile"`
		Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	} `yaml:"aws" json:"aws"`

	Engine struct {
		ThreadCount  int `yaml:"thread_count" json:"thread_count"`
		MaxRetries   int `yaml:"max_retries" json:"max_retries"`
		QueueTimeout int `yaml:"queue_timeout" json:"queue_timeout"`
	} `yaml:"engine" json:"engine"`

	Logging struct {
		Level  string `yaml:"level" json:"level"`
		Format string `yaml:"format" json:"format"`
		File   string `yaml:"file,omitempty" json:"file,omitempty"`
	} `yaml:"logging" json:"logging"`

	Dashboard struct {
		Enabled bool   `yaml:"enabled" json:"enabled"`
		Addr    string `yaml:"addr" json:"addr"`
	} `yaml:"dashboard" json:"dashboard"`

	Telemetry struct {
		Enabled bool   `yaml:"enabled" json:"enabled"`
		Brokers string `yaml:"brokers" json:"brokers"`
		Topic   string `yaml:"topic" json:"topic"`
	} `yaml:"telemetry" json:"telemetry"`
}

// Default returns a configuration with the engine's documented defaults.
func Default() *Config {
	c := &Config{}
	c.AWS.Region = "us-east-1"
	c.Engine.ThreadCount = 150
	c.Engine.MaxRetries = 20
	c.Engine.QueueTimeout = 10
	c.Logging.Level = "info"
	c.Logging.Format = "text"
	c.Dashboard.Addr = ":8700"
	c.Telemetry.Topic = "s3scan.run-summary"
	return c
}

// Load reads s3scan.yml (or its dotfile/home-directory variants) if
// present, then applies environment overrides. A missing config file is
// not an error; a malformed one is.
func Load() (*Config, error) {
	cfg := Default()

	if err := cfg.loadFromFile(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg.loadFromEnv()

	return cfg, nil
}

func (c *Config) loadFromFile() error {
	configPaths := []string{
		"s3scan.yml",
		"s3scan.yaml",
		".s3scan.yml",
		".s3scan.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		configPaths = append(configPaths,
			filepath.Join(home, ".s3scan.yml"),
			filepath.Join(home, ".config", "s3scan", "config.yml"),
		)
	}

	for _, path := range configPaths {
		if data, err := os.ReadFile(path); err == nil {
			return yaml.Unmarshal(data, c)
		}
	}

	return os.ErrNotExist
}

func (c *Config) loadFromEnv() {
	if region := os.Getenv("AWS_REGION"); region != "" {
		c.AWS.Region = region
	}
	if region := os.Getenv("AWS_DEFAULT_REGION"); region != "" && c.AWS.Region == "us-east-1" {
		c.AWS.Region = region
	}
	if profile := os.Getenv("AWS_PROFILE"); profile != "" {
		c.AWS.Profile = profile
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		c.AWS.Endpoint = endpoint
	}
	if level := os.Getenv("S3SCAN_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if threads := os.Getenv("S3SCAN_THREAD_COUNT"); threads != "" {
		if n, err := strconv.Atoi(threads); err == nil {
			c.Engine.ThreadCount = n
		}
	}
	if retries := os.Getenv("S3SCAN_MAX_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil {
			c.Engine.MaxRetries = n
		}
	}
	if brokers := os.Getenv("S3SCAN_KAFKA_BROKERS"); brokers != "" {
		c.Telemetry.Enabled = true
		c.Telemetry.Brokers = brokers
	}
}

// Save writes the configuration to path as YAML, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0644)
}

// GetRegion returns the configured AWS region, falling back to the
// default when unset.
func (c *Config) GetRegion() string {
	if c.AWS.Region == "" {
		return "us-east-1"
	}
	return c.AWS.Region
}
