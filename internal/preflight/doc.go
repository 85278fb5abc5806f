// Package preflight provides startup readiness checks.
//
// The run command executes RunAll before the bot starts polling and refuses
// to start when a required check fails; the doctor command renders the same
// results for the operator. Checks cover the ffmpeg binary, token
// resolution, staging directory access, free disk space, and Bot API
// reachability.
package preflight
