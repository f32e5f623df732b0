// Package linefile is the line-oriented file layer every pipeline stage reads
// and writes chunks through. Files are plain newline-delimited text.
package linefile

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"wordfreq/pkg/common"
)

const DefaultBufferSize = 64 * 1024

// Reader yields one record per call; ok is false once the file is exhausted.
type Reader interface {
	ReadLine() (line string, ok bool, err error)
	Close() error
}

// Writer appends records, each followed by '\n'.
type Writer interface {
	WriteLine(line string) error
	// Written is the number of bytes accepted so far, terminators included.
	Written() int64
	Close() error
}

// Opener abstracts where chunk files live.
type Opener interface {
	OpenReader(path string) (Reader, error)
	OpenWriter(path string) (Writer, error)
}

// Disk opens files on the local file system.
type Disk struct {
	BufferSize int
}

func (d Disk) bufferSize() int {
	if d.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return d.BufferSize
}

func (d Disk) OpenReader(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.WrapIO("open", path, err)
	}
	return &fileReader{
		path:   path,
		file:   f,
		reader: bufio.NewReaderSize(f, d.bufferSize()),
	}, nil
}

func (d Disk) OpenWriter(path string) (Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, common.WrapIO("create", path, err)
	}
	return &fileWriter{
		path:   path,
		file:   f,
		writer: bufio.NewWriterSize(f, d.bufferSize()),
	}, nil
}

type fileReader struct {
	path   string
	file   *os.File
	reader *bufio.Reader
	closed bool
}

func (r *fileReader) ReadLine() (string, bool, error) {
	if r.closed {
		return "", false, common.WrapIO("read", r.path, os.ErrClosed)
	}
	line, err := r.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, common.WrapIO("read", r.path, err)
	}
	if err != nil && line == "" {
		return "", false, nil
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true, nil
}

func (r *fileReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return common.WrapIO("close", r.path, r.file.Close())
}

type fileWriter struct {
	path    string
	file    *os.File
	writer  *bufio.Writer
	written int64
	closed  bool
}

func (w *fileWriter) WriteLine(line string) error {
	if w.closed {
		return common.WrapIO("write", w.path, os.ErrClosed)
	}
	if _, err := w.writer.WriteString(line); err != nil {
		return common.WrapIO("write", w.path, err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return common.WrapIO("write", w.path, err)
	}
	w.written += int64(len(line)) + 1
	return nil
}

func (w *fileWriter) Written() int64 { return w.written }

// Close flushes and releases the file. The handle is released even when the
// flush fails.
func (w *fileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	flushErr := w.writer.Flush()
	closeErr := w.file.Close()
	if flushErr != nil {
		return common.WrapIO("flush", w.path, flushErr)
	}
	return common.WrapIO("close", w.path, closeErr)
}

// WriteAll writes lines to path and closes the file.
func WriteAll(o Opener, path string, lines []string) (err error) {
	w, err := o.OpenWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	for _, l := range lines {
		if err := w.WriteLine(l); err != nil {
			return err
		}
	}
	return nil
}

// ReadAll loads every line of path. Only meant for bounded files.
func ReadAll(o Opener, path string) ([]string, error) {
	r, err := o.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var lines []string
	for {
		line, ok, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			return lines, nil
		}
		lines = append(lines, line)
	}
}
