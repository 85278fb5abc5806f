// Package telegram wraps the Bot API client behind the narrow Messenger
// surface the rest of the service consumes. The wrapper maps configured
// transport timeouts onto the HTTP client and translates API failures
// into the shared error taxonomy.
package telegram
