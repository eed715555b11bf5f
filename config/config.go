package config

var (
	// PageSize is the default size of newly allocated pages. The 64 byte
	// allowance keeps a page plus allocator bookkeeping inside a single
	// size class.
	PageSize = 4096 - 64

	// MaxBufferedPages is the default pipe backpressure threshold expressed
	// in pages. A pipe writer suspends once it has buffered
	// MaxBufferedPages * PageSize bytes the reader has not consumed.
	MaxBufferedPages = 4

	// CloserPoolSize caps the goroutines servicing fire-and-forget closes.
	CloserPoolSize = 64
)
