package util

import (
	"errors"
	"fmt"
)

func PanicToError(e any) error {
	switch v := e.(type) {
	case error:
		return v
	case string:
		return errors.New(v)
	case fmt.Stringer:
		return errors.New(v.String())
	default:
		return fmt.Errorf("panic: %v", v)
	}
}
