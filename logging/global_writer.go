package logging

import (
	"io"
	"os"
	"sync"
)

// globalWriter delegates to a writer that can be swapped while loggers hold it.
type globalWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (gw *globalWriter) Write(p []byte) (n int, err error) {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return gw.w.Write(p)
}

func (gw *globalWriter) Set(w io.Writer) (previous io.Writer) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	previous, gw.w = gw.w, w
	return previous
}

var defaultGlobalWriter = &globalWriter{w: os.Stderr}

// SetGlobalOutput redirects the stderr sink of every logger created by
// NewLogger and returns the writer it replaces. The interactive session uses
// it to keep log lines from tearing through the rendered feed.
func SetGlobalOutput(w io.Writer) io.Writer {
	if w == nil {
		w = io.Discard
	}
	return defaultGlobalWriter.Set(w)
}

// GetGlobalOutput returns the shared writer standing in for stderr.
func GetGlobalOutput() io.Writer {
	return defaultGlobalWriter
}
