package chunk

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordfreq/pkg/common"
	"wordfreq/pkg/monitor"
	"wordfreq/pkg/storage/linefile"
	"wordfreq/pkg/storage/linefile/linefiletest"
)

func splitWords(t *testing.T, dir string, words []string, chunkBytes int64) []Chunk {
	t.Helper()
	input := writeInput(t, dir, words)
	chunks, err := (&Splitter{ChunkBytes: chunkBytes}).Split(context.Background(), input, filepath.Join(dir, "chunks"))
	require.NoError(t, err)
	return chunks
}

func TestSortKeepsDuplicatesAndRemovesRaw(t *testing.T) {
	dir := t.TempDir()
	chunks := splitWords(t, dir, []string{"kiwi", "apple", "kiwi", "banana", "apple"}, 1<<20)
	require.Len(t, chunks, 1)

	stats := monitor.NewPipelineStats()
	sorted, err := (&Sorter{Stats: stats}).Sort(chunks[0])
	require.NoError(t, err)

	lines, err := linefile.ReadAll(linefile.Disk{}, sorted.Path)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "apple", "banana", "kiwi", "kiwi"}, lines)
	assert.True(t, sorted.Fingerprint.Equal(chunks[0].Fingerprint))
	assert.EqualValues(t, 5, sorted.Records)
	assert.Equal(t, chunks[0].Bytes, sorted.Bytes)

	_, err = os.Stat(chunks[0].Path)
	assert.True(t, os.IsNotExist(err), "raw chunk should be removed")
	assert.EqualValues(t, 1, stats.Snapshot().ChunksSorted)
}

func TestSortAllParallel(t *testing.T) {
	dir := t.TempDir()
	var words []string
	for i := 0; i < 300; i++ {
		words = append(words, string(rune('a'+(i*7)%26)))
	}
	chunks := splitWords(t, dir, words, 40)
	require.Greater(t, len(chunks), 4)

	sorted, err := (&Sorter{}).SortAll(context.Background(), chunks, 4)
	require.NoError(t, err)
	require.Len(t, sorted, len(chunks))

	var all []string
	for i, c := range sorted {
		assert.Equal(t, i, c.ID)
		lines, err := linefile.ReadAll(linefile.Disk{}, c.Path)
		require.NoError(t, err)
		assert.True(t, sort.StringsAreSorted(lines), "chunk %d not sorted", i)
		all = append(all, lines...)
	}
	sort.Strings(all)
	want := append([]string(nil), words...)
	sort.Strings(want)
	assert.Equal(t, want, all)
}

func TestSortDirNumericOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, linefile.WriteAll(linefile.Disk{}, filepath.Join(dir, FileName(0, RawExt)), []string{"10", "9", "100"}))
	require.NoError(t, linefile.WriteAll(linefile.Disk{}, filepath.Join(dir, FileName(1, RawExt)), []string{"3"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.raw"), []byte("ignored\n"), 0644))

	sorted, err := (&Sorter{Compare: common.Numeric}).SortDir(context.Background(), dir, 2)
	require.NoError(t, err)
	require.Len(t, sorted, 2)

	lines, err := linefile.ReadAll(linefile.Disk{}, sorted[0].Path)
	require.NoError(t, err)
	assert.Equal(t, []string{"9", "10", "100"}, lines)

	found, err := List(dir, SortedExt)
	require.NoError(t, err)
	assert.Equal(t, Paths(sorted), Paths(found))
}

func TestSortDetectsChangedChunk(t *testing.T) {
	dir := t.TempDir()
	chunks := splitWords(t, dir, []string{"x", "y"}, 1<<20)
	require.NoError(t, os.WriteFile(chunks[0].Path, []byte("x\nz\n"), 0644))

	_, err := (&Sorter{}).Sort(chunks[0])
	var corrupt *common.CorruptChunkError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, chunks[0].Path, corrupt.Path)
}

func TestSortDetectsRecordAndByteMismatch(t *testing.T) {
	dir := t.TempDir()
	chunks := splitWords(t, dir, []string{"x", "y", "x"}, 1<<20)
	require.Len(t, chunks, 1)

	fewer := chunks[0]
	fewer.Records++
	_, err := (&Sorter{}).Sort(fewer)
	var corrupt *common.CorruptChunkError
	require.ErrorAs(t, err, &corrupt)
	assert.Contains(t, corrupt.Reason, "records")

	shorter := chunks[0]
	shorter.Bytes++
	_, err = (&Sorter{}).Sort(shorter)
	require.ErrorAs(t, err, &corrupt)
	assert.Contains(t, corrupt.Reason, "bytes")

	// the raw chunk survives a rejected sort
	_, err = os.Stat(chunks[0].Path)
	require.NoError(t, err)
	sorted, err := (&Sorter{}).Sort(chunks[0])
	require.NoError(t, err)
	assert.EqualValues(t, 3, sorted.Records)
}

func TestSortAllFailureIsFatalAndReleasesHandles(t *testing.T) {
	dir := t.TempDir()
	var words []string
	for i := 0; i < 50; i++ {
		words = append(words, "w")
	}
	chunks := splitWords(t, dir, words, 10)
	require.Greater(t, len(chunks), 2)

	opener := linefiletest.New()
	opener.FailRead = FileName(1, RawExt)
	opener.FailReadAfter = 2

	sorted, err := (&Sorter{Opener: opener}).SortAll(context.Background(), chunks, 3)
	assert.Nil(t, sorted)
	var ioErr *common.FileIOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, linefiletest.ErrInjected)
	assert.Equal(t, 0, opener.Open())
}
