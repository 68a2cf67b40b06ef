package logger

import (
	"io"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// swapWriter lets loggers created at package init follow later output
// changes.
type swapWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.Write(p)
}

func (s *swapWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

var output = &swapWriter{w: os.Stdout}

// SetOutput redirects every logger created by New. A nil writer restores
// stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	output.set(w)
}

// FileOptions configures a rotated log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// TeeToFile copies log output to a size rotated file in addition to stdout.
// Closing the returned value restores stdout only.
func TeeToFile(o FileOptions) io.Closer {
	lj := &lumberjack.Logger{
		Filename:   o.Path,
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAgeDays,
	}
	SetOutput(io.MultiWriter(os.Stdout, lj))
	return closerFunc(func() error {
		SetOutput(nil)
		return lj.Close()
	})
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
