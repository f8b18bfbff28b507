package lode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrInvalidFilename is returned for a filename that would escape the run's
// report directory.
var ErrInvalidFilename = errors.New("invalid filename")

// FileWriter writes report files for a run.
type FileWriter interface {
	// PutFile writes a file under the run's report prefix.
	// The filename must not contain path separators or "..".
	PutFile(ctx context.Context, filename, contentType string, data []byte) error
}

// RunWriter records run summaries.
type RunWriter interface {
	WriteRun(ctx context.Context, rec RunRecord) error
}

// ValidateFilename rejects empty names, path separators and "..".
func ValidateFilename(filename string) error {
	switch {
	case filename == "":
		return fmt.Errorf("%w: empty", ErrInvalidFilename)
	case strings.ContainsAny(filename, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidFilename, filename)
	case strings.Contains(filename, ".."):
		return fmt.Errorf("%w: %q contains \"..\"", ErrInvalidFilename, filename)
	}
	return nil
}

// StubFileWriter records PutFile and WriteRun calls for testing.
type StubFileWriter struct {
	mu    sync.Mutex
	Files []StubFileRecord
	Runs  []RunRecord

	// Err, if set, is returned from every call.
	Err error
}

// StubFileRecord is a recorded file write for testing.
type StubFileRecord struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewStubFileWriter creates a new stub file writer.
func NewStubFileWriter() *StubFileWriter {
	return &StubFileWriter{}
}

// PutFile implements FileWriter by recording the call.
func (w *StubFileWriter) PutFile(_ context.Context, filename, contentType string, data []byte) error {
	if err := ValidateFilename(filename); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	w.Files = append(w.Files, StubFileRecord{
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	})
	return nil
}

// WriteRun implements RunWriter by recording the call.
func (w *StubFileWriter) WriteRun(_ context.Context, rec RunRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	w.Runs = append(w.Runs, rec)
	return nil
}

var (
	_ FileWriter = (*StubFileWriter)(nil)
	_ RunWriter  = (*StubFileWriter)(nil)
)
