package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateToolkit(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	return c.validateWorkflow()
}

func (c *Config) validateStorage() error {
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/lifelog/config.toml"
		}
		return fmt.Errorf("storage.access_key and storage.secret_key are required. Set LIFELOG_S3_ACCESS_KEY/LIFELOG_S3_SECRET_KEY env vars or edit %s (create with 'lifelogd config init')", defaultPath)
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket must be set")
	}
	return nil
}

func (c *Config) validateToolkit() error {
	if c.Toolkit.ThumbnailWidth <= 0 {
		return errors.New("toolkit.thumbnail_width must be positive")
	}
	if c.Toolkit.ThumbnailTimestamp < 0 {
		return errors.New("toolkit.thumbnail_timestamp must not be negative")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.Binary == "" {
		return errors.New("transcription.binary must be set")
	}
	if len(c.Transcription.Language) != 2 {
		return fmt.Errorf("transcription.language must be a two-letter code, got %q", c.Transcription.Language)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	return nil
}
