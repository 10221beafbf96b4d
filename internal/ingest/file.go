package ingest

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// File is a reference to a document awaiting upload. Open is called once per
// upload attempt.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileFromPath references a file on disk. The file is not opened until an
// upload starts.
func FileFromPath(path string) *File {
	return &File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// FileFromBytes wraps in-memory content.
func FileFromBytes(name string, data []byte) *File {
	return &File{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}
