package native

import "fmt"

// Dylib is not available on Windows: purego cannot dlopen there. Open always
// fails with ErrLibraryNotFound; use an in-process Library instead.
type Dylib struct {
	Library
	path string
}

// Open reports that libfaiss_c cannot be loaded on this platform.
func Open(path string) (*Dylib, error) {
	return nil, fmt.Errorf("%w: loading %s is not supported on windows", ErrLibraryNotFound, path)
}

// Path returns the file the library was loaded from.
func (l *Dylib) Path() string { return l.path }

// Close is a no-op.
func (l *Dylib) Close() error { return nil }
