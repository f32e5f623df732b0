package linefile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"wordfreq/pkg/common"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk.txt")
	lines := []string{"apple", "", "banana split", "cherry"}

	if err := WriteAll(Disk{}, path, lines); err != nil {
		t.Fatalf("write all: %v", err)
	}
	got, err := ReadAll(Disk{}, path)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(got) != len(lines) {
		t.Fatalf("expected %d lines, got %d: %q", len(lines), len(got), got)
	}
	for i := range lines {
		if got[i] != lines[i] {
			t.Fatalf("line %d: got %q want %q", i, got[i], lines[i])
		}
	}
}

func TestReaderHandlesMissingTerminatorAndCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte("one\r\ntwo\nthree"), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	got, err := ReadAll(Disk{BufferSize: 16}, path)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	want := []string{"one", "two", "three"}
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestWrittenCountsTerminators(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.txt")
	w, err := Disk{}.OpenWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	if err := w.WriteLine("abc"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.WriteLine(""); err != nil {
		t.Fatalf("write: %v", err)
	}
	if w.Written() != 5 {
		t.Fatalf("written: got %d want 5", w.Written())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 5 {
		t.Fatalf("file size: got %d want 5", info.Size())
	}
	if err := w.WriteLine("late"); err == nil {
		t.Fatal("expected write after close to fail")
	}
}

func TestEmptyFileYieldsNoRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r, err := Disk{}.OpenReader(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()
	if _, ok, err := r.ReadLine(); ok || err != nil {
		t.Fatalf("expected exhausted reader, got ok=%v err=%v", ok, err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("idempotent close: %v", err)
	}
}

func TestOpenErrorsAreFileIOErrors(t *testing.T) {
	_, err := Disk{}.OpenReader(filepath.Join(t.TempDir(), "missing.txt"))
	var ioErr *common.FileIOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected FileIOError, got %v", err)
	}
	if ioErr.Op != "open" || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unexpected error %v", err)
	}

	_, err = Disk{}.OpenWriter(filepath.Join(t.TempDir(), "no", "such", "dir", "x.txt"))
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected FileIOError from writer, got %v", err)
	}
}
