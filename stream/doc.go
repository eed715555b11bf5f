// Package stream implements a forward-only paged output stream with
// in-place delayed writes.
//
// Bytes land in the current span, a writable window into the last page
// of the stream's buffers. Reservations carve windows out of the span up
// front and are backfilled later through cursors; completed pages drain
// to the sink only once every reservation has been finalized, so bytes
// belonging to an open reservation never leave the stream.
//
// Four modes share the one structure: buffered memory streams
// (NewMemoryOutput) accumulate output for extraction, fixed-region
// streams (NewUnsafeOutput) write into caller memory and cannot grow,
// file streams (OpenFileOutput) drain through the sync sink slots, and
// pipe streams (package pipe) drain through the async slots with
// backpressure.
package stream
