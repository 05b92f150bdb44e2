package native

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sys/cpu"
)

// EnvLibraryPath names an explicit libfaiss_c location. It wins over the search paths.
const EnvLibraryPath = "FAISS_C_LIBRARY"

// ErrLibraryNotFound is returned when no libfaiss_c candidate exists on disk.
var ErrLibraryNotFound = errors.New("libfaiss_c not found")

// Load locates libfaiss_c (see SearchPaths) and opens it.
func Load() (*Dylib, error) {
	path := FindLibrary()
	if path == "" {
		return nil, fmt.Errorf("%w; set %s or install the FAISS C API", ErrLibraryNotFound, EnvLibraryPath)
	}
	return Open(path)
}

// FindLibrary returns the first existing libfaiss_c candidate, or "".
func FindLibrary() string {
	for _, path := range SearchPaths() {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// SearchPaths lists candidate library files in lookup order.
// SIMD-specialised builds are preferred when the CPU supports them.
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvLibraryPath); p != "" {
		paths = append(paths, p)
	}

	dirs := libraryDirs()
	for _, name := range libraryNames() {
		for _, dir := range dirs {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

func libraryNames() []string {
	var variants []string
	if runtime.GOARCH == "amd64" {
		if cpu.X86.HasAVX512F && cpu.X86.HasAVX512DQ && cpu.X86.HasAVX512BW {
			variants = append(variants, "_avx512")
		}
		if cpu.X86.HasAVX2 {
			variants = append(variants, "_avx2")
		}
	}
	variants = append(variants, "")

	names := make([]string, 0, len(variants))
	for _, v := range variants {
		names = append(names, libraryName("faiss_c"+v))
	}
	return names
}

func libraryName(base string) string {
	if runtime.GOOS == "darwin" {
		return "lib" + base + ".dylib"
	}
	return "lib" + base + ".so"
}

func libraryDirs() []string {
	dirs := []string{
		"/usr/local/lib",
		"/usr/lib",
	}

	if prefix := os.Getenv("CONDA_PREFIX"); prefix != "" {
		dirs = append([]string{filepath.Join(prefix, "lib")}, dirs...)
	}

	switch runtime.GOOS {
	case "darwin":
		dirs = append(dirs, "/opt/homebrew/lib", "/usr/local/opt/faiss/lib")
	case "linux":
		dirs = append(dirs, "/usr/lib/x86_64-linux-gnu", "/usr/lib/aarch64-linux-gnu")
	}
	return dirs
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
