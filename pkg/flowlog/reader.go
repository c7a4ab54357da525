package flowlog

import (
	"bufio"
	"errors"
	"flowtagger/internal/engine/protocol"
	"flowtagger/internal/model"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"strings"
)

const maxLineSize = 1 << 20

// Reader reads flow records from a whitespace separated flow log.
type Reader struct {
	name string
	r    io.Reader
	c    io.Closer
}

// NewReader opens the flow log at filePath.
func NewReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, model.NewPathError(model.ErrNotFound, filePath, err)
		}
		return nil, fmt.Errorf("failed to open flow log '%s': %w", filePath, err)
	}
	return &Reader{name: filePath, r: file, c: file}, nil
}

// FromReader wraps an already open stream. name is used in record errors.
func FromReader(r io.Reader, name string) *Reader {
	return &Reader{name: name, r: r}
}

// Name returns the source name of the reader.
func (r *Reader) Name() string {
	return r.name
}

// Close closes the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

// Records returns a single-pass sequence over the records of the log.
// Unparsable lines yield a *model.RecordError and iteration continues;
// a read failure yields a plain error and ends the sequence.
// Blank lines are skipped.
func (r *Reader) Records() iter.Seq2[model.FlowRecord, error] {
	return func(yield func(model.FlowRecord, error) bool) {
		scanner := bufio.NewScanner(r.r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}

			rec, err := protocol.ParseLine(line)
			if err != nil {
				if !yield(model.FlowRecord{}, &model.RecordError{Source: r.name, Line: lineNum, Text: line, Err: err}) {
					return
				}
				continue
			}
			rec.Line = lineNum
			if !yield(rec, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(model.FlowRecord{}, fmt.Errorf("failed to read flow log '%s': %w", r.name, err))
		}
	}
}
