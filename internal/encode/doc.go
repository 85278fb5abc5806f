// Package encode shrinks video files by shelling out to ffmpeg. Runner
// owns a single invocation; Worker serializes invocations so the host
// never runs more than one transcode at a time.
package encode
