// Package config loads and validates shrinkbot's TOML configuration.
//
// Load resolves the config file (explicit path, ~/.config/shrinkbot, or a
// project-local shrinkbot.toml), decodes it over the defaults, applies
// environment overrides, expands paths, and validates the result. The bot
// token is deliberately not required at load time so commands like doctor
// and config show work on an unconfigured machine; ResolveToken surfaces the
// final env -> config -> secret-file resolution where a token is actually
// needed.
package config
