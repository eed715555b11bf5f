package stream

import "context"

// Sink is the capability set a stream drains completed bytes through.
// Each slot may be nil to mark the operation unsupported in that mode.
// Writes and flushes never emulate a missing async slot with its sync
// counterpart or the reverse; closing is the exception and drains and
// closes through whichever slot the sink carries.
//
// Variants: memory streams carry no sink and buffer indefinitely; file
// sinks fill the sync slots; pipe sinks fill the async slots.
type Sink struct {
	WriteSync  func(p []byte) error
	WriteAsync func(ctx context.Context, p []byte) error
	FlushSync  func() error
	FlushAsync func(ctx context.Context) error
	CloseSync  func() error
	CloseAsync func(ctx context.Context) error
}
