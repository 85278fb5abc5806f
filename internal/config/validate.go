package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateTelegram() error {
	return ensurePositiveMap(map[string]int{
		"telegram.connect_timeout": c.Telegram.ConnectTimeout,
		"telegram.read_timeout":    c.Telegram.ReadTimeout,
		"telegram.write_timeout":   c.Telegram.WriteTimeout,
		"telegram.pool_timeout":    c.Telegram.PoolTimeout,
	})
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.update_timeout":        c.Workflow.UpdateTimeout,
		"workflow.stale_workspace_hours": c.Workflow.StaleWorkspaceHours,
	}); err != nil {
		return err
	}
	// The long poll holds its HTTP response open for update_timeout
	// seconds, so a shorter read timeout would abort every poll.
	if c.Telegram.ReadTimeout <= c.Workflow.UpdateTimeout {
		return fmt.Errorf(
			"telegram.read_timeout (%d) must be greater than workflow.update_timeout (%d)",
			c.Telegram.ReadTimeout, c.Workflow.UpdateTimeout,
		)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
