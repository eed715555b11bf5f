package stream

import (
	"fmt"
	"sync/atomic"

	logger "github.com/moontrade/log"
)

// Programming defects panic; they signal a bug in the caller and are not
// part of the recoverable error taxonomy. I/O failures are returned.
func defect(format string, args ...any) {
	panic(fmt.Sprintf("faststream: "+format, args...))
}

var onUnhandled atomic.Pointer[func(error)]

// SetUnhandledErrorHandler installs fn as the receiver of errors from
// fire-and-forget closes. A nil fn restores the default, which logs.
func SetUnhandledErrorHandler(fn func(error)) {
	if fn == nil {
		onUnhandled.Store(nil)
		return
	}
	onUnhandled.Store(&fn)
}

func reportUnhandled(err error) {
	if fn := onUnhandled.Load(); fn != nil {
		(*fn)(err)
		return
	}
	logger.WarnErr(err, "unhandled close error")
}
