package common

import "fmt"

// FileIOError covers every open/read/write/close failure on a pipeline file.
type FileIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileIOError) Error() string {
	return fmt.Sprintf("file io: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileIOError) Unwrap() error { return e.Err }

// WrapIO returns nil for a nil err, otherwise a *FileIOError.
func WrapIO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &FileIOError{Op: op, Path: path, Err: err}
}

// InvalidConfigError reports a tunable outside its legal range.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// CorruptChunkError is raised when a chunk violates its ordering or content guarantee.
type CorruptChunkError struct {
	Path   string
	Line   int64
	Reason string
}

func (e *CorruptChunkError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("corrupt chunk %s at line %d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("corrupt chunk %s: %s", e.Path, e.Reason)
}
