package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "", cfg.AWS.Profile)
	assert.Equal(t, "", cfg.AWS.Endpoint)

	assert.Equal(t, 150, cfg.Engine.ThreadCount)
	assert.Equal(t, 20, cfg.Engine.MaxRetries)
	assert.Equal(t, 10, cfg.Engine.QueueTimeout)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "", cfg.Logging.File)
}

func TestLoad_NoConfigFile(t *testing.T) {
	originalWD, _ := os.Getwd()
	defer os.Chdir(originalWD)

	tempDir := t.TempDir()
	os.Chdir(tempDir)

	cfg, err := Load()

	assert.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, 150, cfg.Engine.ThreadCount)
}

func TestLoad_WithConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "s3scan.yml")

	configContent := `
aws:
  region: us-west-2
  profile: test-profile
engine:
  thread_count: 8
  max_retries: 5
  queue_timeout: 20
logging:
  level: debug
  format: json
  file: /var/log/s3scan.log
`

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	assert.NoError(t, err)

	originalWD, _ := os.Getwd()
	defer os.Chdir(originalWD)
	os.Chdir(tempDir)

	cfg, err := Load()

	assert.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "us-west-2", cfg.AWS.Region)
	assert.Equal(t, "test-profile", cfg.AWS.Profile)
	assert.Equal(t, 8, cfg.Engine.ThreadCount)
	assert.Equal(t, 5, cfg.Engine.MaxRetries)
	assert.Equal(t, 20, cfg.Engine.QueueTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/var/log/s3scan.log", cfg.Logging.File)
}

func TestLoadFromEnv(t *testing.T) {
	vars := []string{
		"AWS_REGION", "AWS_DEFAULT_REGION", "AWS_PROFILE", "AWS_ENDPOINT_URL",
		"S3SCAN_LOG_LEVEL", "S3SCAN_THREAD_COUNT", "S3SCAN_MAX_RETRIES", "S3SCAN_KAFKA_BROKERS",
	}
	original := map[string]string{}
	for _, v := range vars {
		original[v] = os.Getenv(v)
	}
	defer func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	os.Setenv("AWS_REGION", "eu-west-1")
	os.Setenv("AWS_PROFILE", "env-profile")
	os.Setenv("AWS_ENDPOINT_URL", "http://localhost:4566")
	os.Setenv("S3SCAN_LOG_LEVEL", "debug")
	os.Setenv("S3SCAN_THREAD_COUNT", "42")
	os.Setenv("S3SCAN_MAX_RETRIES", "3")
	os.Setenv("S3SCAN_KAFKA_BROKERS", "broker1:9092")

	cfg := Default()
	cfg.loadFromEnv()

	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "env-profile", cfg.AWS.Profile)
	assert.Equal(t, "http://localhost:4566", cfg.AWS.Endpoint)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 42, cfg.Engine.ThreadCount)
	assert.Equal(t, 3, cfg.Engine.MaxRetries)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "broker1:9092", cfg.Telemetry.Brokers)
}

func TestLoadFromEnv_AWSDefaultRegion(t *testing.T) {
	originalRegion := os.Getenv("AWS_REGION")
	originalDefaultRegion := os.Getenv("AWS_DEFAULT_REGION")
	defer func() {
		if originalRegion == "" {
			os.Unsetenv("AWS_REGION")
		} else {
			os.Setenv("AWS_REGION", originalRegion)
		}
		if originalDefaultRegion == "" {
			os.Unsetenv("AWS_DEFAULT_REGION")
		} else {
			os.Setenv("AWS_DEFAULT_REGION", originalDefaultRegion)
		}
	}()

	os.Unsetenv("AWS_REGION")
	os.Setenv("AWS_DEFAULT_REGION", "ap-south-1")

	cfg := Default()
	cfg.loadFromEnv()

	assert.Equal(t, "ap-south-1", cfg.AWS.Region)
}

func TestSave(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test-config.yml")

	cfg := Default()
	cfg.AWS.Region = "us-west-2"
	cfg.Engine.ThreadCount = 64

	err := cfg.Save(configPath)
	assert.NoError(t, err)
	assert.FileExists(t, configPath)

	data, err := os.ReadFile(configPath)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "region: us-west-2")
	assert.Contains(t, string(data), "thread_count: 64")
}

func TestSave_CreateDirectory(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, "nested")
	configPath := filepath.Join(configDir, "config.yml")

	cfg := Default()
	err := cfg.Save(configPath)

	assert.NoError(t, err)
	assert.FileExists(t, configPath)
	assert.DirExists(t, configDir)
}

func TestGetRegion(t *testing.T) {
	cfg := Default()

	cfg.AWS.Region = "us-west-2"
	assert.Equal(t, "us-west-2", cfg.GetRegion())

	cfg.AWS.Region = ""
	assert.Equal(t, "us-east-1", cfg.GetRegion())
}

func TestLoad_InvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "s3scan.yml")

	invalidYAML := `
aws:
  region: us-west-2
invalid yaml content [
`

	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	assert.NoError(t, err)

	originalWD, _ := os.Getwd()
	defer os.Chdir(originalWD)
	os.Chdir(tempDir)

	_, err = Load()
	assert.Error(t, err)
}
