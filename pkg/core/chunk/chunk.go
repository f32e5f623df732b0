// Package chunk splits an input file into bounded, line-aligned chunk files
// and sorts each chunk in memory.
package chunk

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"wordfreq/pkg/common"
	"wordfreq/pkg/core/structure"
)

const (
	RawExt    = ".raw"
	SortedExt = ".sorted"

	namePrefix = "chunk-"
)

// Chunk describes one chunk file. Records and Fingerprint are zero for chunks
// discovered on disk rather than produced in this process.
type Chunk struct {
	ID          int
	Path        string
	Records     int64
	Bytes       int64
	Fingerprint structure.Fingerprint
}

func FileName(id int, ext string) string {
	return fmt.Sprintf("%s%06d%s", namePrefix, id, ext)
}

// SortedPath maps a raw chunk path to its sorted counterpart.
func SortedPath(rawPath string) string {
	return strings.TrimSuffix(rawPath, RawExt) + SortedExt
}

func parseID(path, ext string) (int, bool) {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, namePrefix) || !strings.HasSuffix(base, ext) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, namePrefix), ext))
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// List finds the chunk files with the given extension in dir, ordered by id.
func List(dir, ext string) ([]Chunk, error) {
	files, err := filepath.Glob(filepath.Join(dir, namePrefix+"*"+ext))
	if err != nil {
		return nil, common.WrapIO("list", dir, err)
	}

	chunks := make([]Chunk, 0, len(files))
	for _, f := range files {
		id, ok := parseID(f, ext)
		if !ok {
			continue
		}
		chunks = append(chunks, Chunk{ID: id, Path: f})
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ID < chunks[j].ID })
	return chunks, nil
}

// Paths returns the chunk paths in the given order.
func Paths(chunks []Chunk) []string {
	paths := make([]string, len(chunks))
	for i, c := range chunks {
		paths[i] = c.Path
	}
	return paths
}
