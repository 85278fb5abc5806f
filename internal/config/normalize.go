package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTelegram(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTelegram() error {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	if value, ok := os.LookupEnv("BOT_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Telegram.Token = strings.TrimSpace(value)
	}
	c.Telegram.TokenFile = strings.TrimSpace(c.Telegram.TokenFile)
	if c.Telegram.TokenFile == "" {
		c.Telegram.TokenFile = defaultTokenFile
	}
	var err error
	if c.Telegram.TokenFile, err = expandPath(c.Telegram.TokenFile); err != nil {
		return fmt.Errorf("telegram.token_file: %w", err)
	}
	if c.Telegram.ConnectTimeout <= 0 {
		c.Telegram.ConnectTimeout = defaultConnectTimeout
	}
	if c.Telegram.ReadTimeout <= 0 {
		c.Telegram.ReadTimeout = defaultReadTimeout
	}
	if c.Telegram.WriteTimeout <= 0 {
		c.Telegram.WriteTimeout = defaultWriteTimeout
	}
	if c.Telegram.PoolTimeout <= 0 {
		c.Telegram.PoolTimeout = defaultPoolTimeout
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.UpdateTimeout <= 0 {
		c.Workflow.UpdateTimeout = defaultUpdateTimeout
	}
	if c.Workflow.StaleWorkspaceHours <= 0 {
		c.Workflow.StaleWorkspaceHours = defaultStaleWorkspaceHours
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
