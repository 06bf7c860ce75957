package record

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"codeberg.org/mutker/pidctl/internal/errors"
)

const (
	defaultFilePerm = 0o644
	columnLine      = "time, corrected Value, current Value"
)

// FileSink writes a header followed by one comma-space separated line per
// record. Each Append is flushed before it returns.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	w      *bufio.Writer
	closed bool
}

// CreateFile truncates path and writes the header. Callers decide whether
// an existing file may be overwritten.
func CreateFile(path string, header Header) (*FileSink, error) {
	errFactory := errors.New()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, defaultFilePerm)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitFailed, err)
	}

	s := &FileSink{file: f, w: bufio.NewWriter(f)}
	if err := s.writeHeader(header); err != nil {
		f.Close()
		return nil, errFactory.Wrap(errors.ErrRecordWrite, err)
	}

	return s, nil
}

func (s *FileSink) writeHeader(header Header) error {
	fmt.Fprintln(s.w, header.Title)
	for _, field := range header.Fields {
		fmt.Fprintf(s.w, "%s: %s\n", field.Name, field.Value)
	}
	fmt.Fprintln(s.w)
	fmt.Fprintln(s.w, columnLine)

	return s.w.Flush()
}

func (s *FileSink) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New().WithData(errors.ErrRecordWrite, "sink closed")
	}

	s.w.WriteString(FormatLine(rec))
	s.w.WriteByte('\n')
	if err := s.w.Flush(); err != nil {
		return errors.New().Wrap(errors.ErrRecordWrite, err)
	}

	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	errFactory := errors.New()
	if err := s.w.Flush(); err != nil {
		s.file.Close()
		return errFactory.Wrap(errors.ErrRecordClose, err)
	}
	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return errFactory.Wrap(errors.ErrRecordClose, err)
	}
	if err := s.file.Close(); err != nil {
		return errFactory.Wrap(errors.ErrRecordClose, err)
	}

	return nil
}

// FormatLine renders rec as "elapsed, corrected, current".
func FormatLine(rec Record) string {
	return formatFloat(rec.Elapsed.Seconds()) + ", " +
		formatFloat(rec.Corrected) + ", " +
		formatFloat(rec.Current)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
