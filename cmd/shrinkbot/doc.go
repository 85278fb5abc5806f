// Command shrinkbot runs the Telegram video compression bot and its
// operator utilities: configuration management, preflight diagnostics, and
// staging workspace maintenance.
package main
