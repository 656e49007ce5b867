package mqpayload

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents configuration information for the AWS environment and
// the payload offloading behaviour. Region, AccountID and Bucket must be set.
// AccessKeyID and SecretAccessKey are optional; without them the default AWS
// credential chain is used.
type Config struct {
	Region          string `yaml:"region"`
	AccountID       string `yaml:"account_id"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// Endpoint overrides the AWS endpoint, e.g. for LocalStack.
	Endpoint string `yaml:"endpoint"`

	// Bucket receives offloaded payloads.
	Bucket string `yaml:"bucket"`

	// Threshold is the message size in bytes above which bodies are offloaded.
	Threshold int `yaml:"threshold"`

	// WaitTimeSeconds is the default long poll duration.
	WaitTimeSeconds int `yaml:"wait_time_seconds"`

	// IdleSleepMillis is how long the consumer sleeps after an empty poll.
	IdleSleepMillis int `yaml:"idle_sleep_ms"`

	// DeleteFromStore enables deleting stored payloads with their messages.
	DeleteFromStore bool `yaml:"delete_from_store"`

	// Compression is "none", "zstd" or "lz4".
	Compression string `yaml:"compression"`

	// HandleFormat is "envelope" or "markers".
	HandleFormat string `yaml:"handle_format"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config holding the default tuning values.
func DefaultConfig() *Config {
	return &Config{
		Threshold:       DefaultThreshold,
		WaitTimeSeconds: defaultWaitTimeSeconds,
		IdleSleepMillis: int(defaultIdleSleep / time.Millisecond),
		Compression:     "none",
		HandleFormat:    "envelope",
		LogLevel:        "info",
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// ConfigFromEnv builds a Config from the environment. Variables found in
// envFiles are loaded first without overriding ones already set; a missing
// file is not an error.
func ConfigFromEnv(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}

	cfg := DefaultConfig()
	cfg.Region = getEnv("aws_region", getEnv("AWS_REGION", cfg.Region))
	cfg.AccountID = getEnv("aws_account", cfg.AccountID)
	cfg.AccessKeyID = getEnv("aws_access_key_id", cfg.AccessKeyID)
	cfg.SecretAccessKey = getEnv("aws_secret_access_key", cfg.SecretAccessKey)
	cfg.Endpoint = getEnv("AWS_ENDPOINT", cfg.Endpoint)
	cfg.Bucket = getEnv("SQS_LARGE_PAYLOAD_S3_BUCKET_NAME", cfg.Bucket)
	cfg.Threshold = getEnvInt("SQS_LARGE_PAYLOAD_THRESHOLD", cfg.Threshold)
	cfg.WaitTimeSeconds = getEnvInt("SQS_WAIT_TIME_SECONDS", cfg.WaitTimeSeconds)
	cfg.IdleSleepMillis = getEnvInt("RECEIVER_SLEEP_DURATION", cfg.IdleSleepMillis)
	cfg.DeleteFromStore = getEnvBool("ENABLE_DELETE_FROM_S3", cfg.DeleteFromStore)
	cfg.Compression = getEnv("SQS_LARGE_PAYLOAD_COMPRESSION", cfg.Compression)
	cfg.HandleFormat = getEnv("SQS_HANDLE_FORMAT", cfg.HandleFormat)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// Validate reports the first missing or invalid setting.
func (c *Config) Validate() error {
	if c.Region == "" {
		return ErrMissingRegion
	}
	if c.AccountID == "" {
		return ErrMissingAccountID
	}
	if c.Bucket == "" {
		return ErrMissingBucket
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return ErrInvalidCredentials
	}
	if c.Threshold < 0 {
		return fmt.Errorf("%w: threshold cannot be negative", ErrConfiguration)
	}
	if c.WaitTimeSeconds < 0 || c.WaitTimeSeconds > 20 {
		return fmt.Errorf("%w: wait time must be between 0 and 20 seconds", ErrConfiguration)
	}
	if c.IdleSleepMillis < 0 {
		return fmt.Errorf("%w: idle sleep cannot be negative", ErrConfiguration)
	}
	if _, err := ParseCompression(c.Compression); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if _, err := ParseHandleCodec(c.HandleFormat); err != nil {
		return err
	}
	return nil
}

// Options translates the tuning settings into client options.
func (c *Config) Options() ([]Option, error) {
	compression, err := ParseCompression(c.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	codec, err := ParseHandleCodec(c.HandleFormat)
	if err != nil {
		return nil, err
	}

	return []Option{
		WithThreshold(c.Threshold),
		WithWaitTimeSeconds(c.WaitTimeSeconds),
		WithIdleSleep(time.Duration(c.IdleSleepMillis) * time.Millisecond),
		WithStoreDelete(c.DeleteFromStore),
		WithCompression(compression),
		WithHandleCodec(codec),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
