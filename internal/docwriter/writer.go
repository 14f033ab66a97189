// Package docwriter persists rendered documentation pages,
// touching only files whose content actually changed, and supports a
// check-only mode that reports drift instead of writing.
package docwriter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"braces.dev/errtrace"

	"github.com/yard2md/yard2md/internal/errdefer"
)

// Writer writes pages under an output directory.
type Writer struct {
	// Dir is the output directory root.
	Dir string

	// Check, when set, writes nothing: pages that would be created
	// or rewritten are recorded as drift instead.
	Check bool

	// Log receives one line per written page. If nil, writes are
	// silent.
	Log *log.Logger

	created, updated, unchanged int
	drift                       []string
}

func (w *Writer) logger() *log.Logger {
	if w.Log != nil {
		return w.Log
	}
	return log.New(io.Discard, "", 0)
}

// Write stores one page. page is the output-relative, /-separated
// page path.
func (w *Writer) Write(page string, content []byte) error {
	path := filepath.Join(w.Dir, filepath.FromSlash(page))

	old, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if w.Check {
			w.drift = append(w.drift, page)
			return nil
		}
		w.created++
		w.logger().Printf("create %s", page)

	case err != nil:
		return errtrace.Wrap(err)

	case bytes.Equal(old, content):
		w.unchanged++
		return nil

	default:
		if w.Check {
			w.drift = append(w.drift, page)
			return nil
		}
		w.updated++
		w.logger().Printf("update %s", page)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errtrace.Wrap(err)
	}
	return w.writeFile(path, content)
}

func (w *Writer) writeFile(path string, content []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errtrace.Wrap(err)
	}
	defer errdefer.Close(&err, f)

	_, err = f.Write(content)
	return errtrace.Wrap(err)
}

// Drift lists the pages found stale in check mode,
// in the order they were written.
func (w *Writer) Drift() []string {
	return w.drift
}

// Summary describes what a run did.
func (w *Writer) Summary() string {
	return fmt.Sprintf("%d created, %d updated, %d unchanged",
		w.created, w.updated, w.unchanged)
}
