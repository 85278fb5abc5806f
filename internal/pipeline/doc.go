// Package pipeline drives a compression job from command message to
// delivered result.
//
// A job moves through a fixed sequence: resolve the source video, download
// it into a private workspace, transcode it on the encode worker, apply the
// outcome policy (oversize advisory, no-reduction rejection), deliver the
// result as a video reply, and clean up. Cleanup obligations (the processing
// status message, the command message, the oversize warning, and the
// workspace directory) are registered as the job progresses and run in a
// deferred finish on every exit path.
package pipeline
