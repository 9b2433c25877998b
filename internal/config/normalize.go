package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStorage()
	c.normalizeToolkit()
	c.normalizeTranscription()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaultDataDir
	}
	if c.DataDir, err = expandPath(c.DataDir); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	if strings.TrimSpace(c.LogDir) == "" {
		c.LogDir = defaultLogDir
	}
	if c.LogDir, err = expandPath(c.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}
	if strings.TrimSpace(c.WorkDir) == "" {
		c.WorkDir = os.TempDir()
	}
	if c.WorkDir, err = expandPath(c.WorkDir); err != nil {
		return fmt.Errorf("work_dir: %w", err)
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeStorage() {
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	if c.Storage.Endpoint == "" {
		c.Storage.Endpoint = defaultStorageEndpoint
	}
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	if c.Storage.Region == "" {
		c.Storage.Region = defaultStorageRegion
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = defaultStorageBucket
	}
	if c.Storage.PresignTTL <= 0 {
		c.Storage.PresignTTL = defaultStoragePresignTTL
	}
}

func (c *Config) normalizeToolkit() {
	c.Toolkit.FFmpegBinary = strings.TrimSpace(c.Toolkit.FFmpegBinary)
	if c.Toolkit.FFmpegBinary == "" {
		c.Toolkit.FFmpegBinary = defaultFFmpegBinary
	}
	c.Toolkit.FFprobeBinary = strings.TrimSpace(c.Toolkit.FFprobeBinary)
	if c.Toolkit.FFprobeBinary == "" {
		c.Toolkit.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Toolkit.ThumbnailTimestamp < 0 {
		c.Toolkit.ThumbnailTimestamp = defaultThumbnailTimestamp
	}
	if c.Toolkit.ThumbnailWidth <= 0 {
		c.Toolkit.ThumbnailWidth = defaultThumbnailWidth
	}
	if c.Toolkit.CommandTimeout <= 0 {
		c.Toolkit.CommandTimeout = defaultToolkitTimeout
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Binary = strings.TrimSpace(c.Transcription.Binary)
	if c.Transcription.Binary == "" {
		c.Transcription.Binary = defaultWhisperBinary
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if c.Transcription.Language == "" {
		c.Transcription.Language = defaultLanguage
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = defaultWhisperTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollInterval <= 0 {
		c.Workflow.PollInterval = defaultPollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// applyEnvOverrides honours LIFELOG_* environment variables for credentials
// and connection settings that operators prefer to keep out of the TOML file.
func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("LIFELOG_S3_ENDPOINT"); ok {
		c.Storage.Endpoint = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("LIFELOG_S3_ACCESS_KEY"); ok {
		c.Storage.AccessKey = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("LIFELOG_S3_SECRET_KEY"); ok {
		c.Storage.SecretKey = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("LIFELOG_S3_BUCKET"); ok {
		c.Storage.Bucket = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("LIFELOG_API_TOKEN"); ok {
		c.API.Token = strings.TrimSpace(v)
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			trimmed = home
		} else {
			trimmed = filepath.Join(home, trimmed[2:])
		}
	}
	return filepath.Abs(trimmed)
}
