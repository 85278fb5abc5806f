// Package notify manages the short-lived chat messages that surround a
// job: the processing status line, advisories, and error notices. Every
// message the notifier posts is eventually deleted, either on demand
// during cleanup or by a deferred timer, and deletion failures are
// logged instead of propagated.
package notify
