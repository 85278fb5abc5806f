package config

const (
	defaultStagingDir          = "~/.local/share/shrinkbot/staging"
	defaultLogDir              = "~/.local/share/shrinkbot/logs"
	defaultTokenFile           = "~/.config/shrinkbot/token.txt"
	defaultConnectTimeout      = 10
	defaultReadTimeout         = 60
	defaultWriteTimeout        = 60
	defaultPoolTimeout         = 10
	defaultUpdateTimeout       = 30
	defaultStaleWorkspaceHours = 24
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Telegram: Telegram{
			TokenFile:      defaultTokenFile,
			ConnectTimeout: defaultConnectTimeout,
			ReadTimeout:    defaultReadTimeout,
			WriteTimeout:   defaultWriteTimeout,
			PoolTimeout:    defaultPoolTimeout,
		},
		Workflow: Workflow{
			UpdateTimeout:       defaultUpdateTimeout,
			StaleWorkspaceHours: defaultStaleWorkspaceHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
