// Package archive bundles converted images into a single zip file.
package archive

import (
	"bytes"
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"
)

// PackagingError reports that the archive could not be finalized.
// It is fatal to an export run.
type PackagingError struct {
	Err error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging failed: %v", e.Err)
}

func (e *PackagingError) Unwrap() error {
	return e.Err
}

type entry struct {
	name string
	data []byte
}

// Packager accumulates named entries in memory. Entry names are expected to
// be unique already; collisions are not checked.
type Packager struct {
	entries  []entry
	modified time.Time
}

// New creates an empty Packager.
func New() *Packager {
	return &Packager{modified: time.Now()}
}

// AddEntry appends a named entry. Entries are written in insertion order.
func (p *Packager) AddEntry(name string, data []byte) {
	p.entries = append(p.entries, entry{name: name, data: data})
}

// Finalize serializes all entries into one deflate-compressed zip.
func (p *Packager) Finalize() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	for _, e := range p.entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: p.modified,
		})
		if err != nil {
			return nil, &PackagingError{Err: fmt.Errorf("create entry %q: %w", e.name, err)}
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, &PackagingError{Err: fmt.Errorf("write entry %q: %w", e.name, err)}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, &PackagingError{Err: fmt.Errorf("close archive: %w", err)}
	}

	return buf.Bytes(), nil
}
