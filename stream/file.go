package stream

import "os"

// FileSink wraps an open file in the sync capability slots. The async
// slots stay absent.
func FileSink(f *os.File) *Sink {
	return &Sink{
		WriteSync: func(p []byte) error {
			_, err := f.Write(p)
			return err
		},
		FlushSync: f.Sync,
		CloseSync: f.Close,
	}
}

// NewFileOutput returns a handle owning a stream that drains into f.
func NewFileOutput(f *os.File, pageSize int) *Handle {
	return NewHandle(NewSinkOutput(FileSink(f), pageSize))
}

// OpenFileOutput creates or truncates the file at path and returns a
// handle owning a stream that drains into it.
func OpenFileOutput(path string, pageSize int) (*Handle, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return NewFileOutput(f, pageSize), nil
}
