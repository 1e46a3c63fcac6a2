package process

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// logFile is the combined stdout/stderr file of an instance.
type logFile struct {
	path string
	file *os.File
}

// logPath returns <dir>/<name>.log.
func logPath(dir, name string) string {
	return filepath.Join(dir, name+".log")
}

// openLogFile truncates and opens the file at path.
func openLogFile(path string) (*logFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	return &logFile{path: path, file: f}, nil
}

// writer returns the writer to attach to the command. With echo set, every
// output line is also logged.
func (l *logFile) writer(echo bool, log *slog.Logger, instance string) io.Writer {
	if !echo {
		return l.file
	}
	return io.MultiWriter(l.file, &lineWriter{log: log, instance: instance})
}

// Close closes the file handle. Safe to call more than once.
func (l *logFile) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// lineWriter logs each complete line written to it.
type lineWriter struct {
	mu       sync.Mutex
	buf      []byte
	log      *slog.Logger
	instance string
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}
		w.log.Info(string(w.buf[:idx]), "instance", w.instance)
		w.buf = w.buf[idx+1:]
	}
	return len(p), nil
}
