// Package ingest provides the source adapters that feed raw NMEA lines into
// a pipeline: TCP and UDP network feeds, a serial port, and timestamped
// replay files. Every adapter runs until its context is cancelled, its feed
// ends, or the pipeline reports a storage failure.
package ingest

import "context"

// Adapter is a running line source bound to one pipeline.
type Adapter interface {
	// Run blocks consuming the feed. It returns nil when the feed is
	// exhausted (file replay), ctx.Err() on cancellation, or the pipeline's
	// error when processing fails fatally.
	Run(ctx context.Context) error
}
