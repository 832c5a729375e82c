package utils

import (
	"bytes"
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

// RunLogWriter implements io.Writer and decorates each line written to the
// run log file with a sequence number and timestamp, so interleaved output
// from a run can be ordered after the fact.
type RunLogWriter struct {
	target  io.Writer
	lineNum *atomic.Uint64
	buf     *bytes.Buffer
}

// NewRunLogWriter wraps target, numbering and timestamping each complete
// line written through it.
func NewRunLogWriter(target io.Writer) *RunLogWriter {
	return &RunLogWriter{
		target:  target,
		lineNum: &atomic.Uint64{},
		buf:     &bytes.Buffer{},
	}
}

func (w *RunLogWriter) writeFormattedLine(line []byte) (int, error) {
	num := w.lineNum.Add(1)
	totalWritten := 0

	prefix := slog.Uint64("line", num).String() + " " +
		slog.String("time", time.Now().Format(time.RFC3339)).String() + " "
	n, err := io.WriteString(w.target, prefix)
	totalWritten += n
	if err != nil {
		return totalWritten, err
	}

	n, err = w.target.Write(append(line, '\n'))
	totalWritten += n
	return totalWritten, err
}

// Write buffers the input and emits complete lines; a trailing partial
// line stays buffered until the next Write or Close. Returns the number
// of bytes written to the target and any error encountered.
func (w *RunLogWriter) Write(p []byte) (n int, err error) {
	if _, err = w.buf.Write(p); err != nil {
		return 0, err
	}

	totalWritten := 0
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// Incomplete line: put it back and wait for the rest.
			w.buf.Write(line)
			break
		}
		n, werr := w.writeFormattedLine(bytes.TrimRight(line, "\r\n"))
		totalWritten += n
		if werr != nil {
			return totalWritten, werr
		}
	}

	return totalWritten, nil
}

// Close flushes any trailing unterminated line to the target.
func (w *RunLogWriter) Close() error {
	remaining := w.buf.Bytes()
	if len(remaining) > 0 {
		_, err := w.writeFormattedLine(bytes.TrimRight(remaining, "\r\n"))
		w.buf.Reset()
		return err
	}
	return nil
}
