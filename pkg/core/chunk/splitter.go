package chunk

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"wordfreq/pkg/common"
	"wordfreq/pkg/logging"
	"wordfreq/pkg/monitor"
	"wordfreq/pkg/storage/linefile"
)

// ctx is polled once per this many lines.
const cancelCheckInterval = 4096

// Splitter partitions an input into raw chunk files of at most ChunkBytes
// each. A chunk is closed right after the line that makes it reach the
// threshold, so it only overshoots by that line.
type Splitter struct {
	Opener     linefile.Opener
	ChunkBytes int64
	Stats      *monitor.PipelineStats
	Log        *zap.Logger
}

// Split streams input into outDir/chunk-NNNNNN.raw, numbered from 0. An empty
// input yields no chunks. On error every handle is closed, the chunk files
// already created are left in place and returned with the error so the caller
// can remove them. The last of those may be incomplete.
func (s *Splitter) Split(ctx context.Context, input, outDir string) ([]Chunk, error) {
	if s.ChunkBytes <= 0 {
		return nil, &common.InvalidConfigError{Field: "chunk_bytes", Reason: "must be positive"}
	}
	log := logging.OrNop(s.Log)
	opener := s.opener()
	start := time.Now()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, common.WrapIO("mkdir", outDir, err)
	}

	r, err := opener.OpenReader(input)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var (
		chunks []Chunk
		cur    Chunk
		w      linefile.Writer
	)
	defer func() {
		if w != nil {
			w.Close()
		}
	}()

	fail := func(err error) ([]Chunk, error) {
		if cur.Path != "" && (len(chunks) == 0 || chunks[len(chunks)-1].Path != cur.Path) {
			chunks = append(chunks, cur)
		}
		return chunks, err
	}

	closeChunk := func() error {
		cur.Bytes = w.Written()
		err := w.Close()
		w = nil
		if err != nil {
			return err
		}
		chunks = append(chunks, cur)
		s.Stats.RecordChunk()
		log.Debug("chunk written",
			zap.String("path", cur.Path),
			zap.Int64("records", cur.Records),
			zap.Int64("bytes", cur.Bytes))
		return nil
	}

	for n := 0; ; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fail(err)
			}
		}

		line, ok, err := r.ReadLine()
		if err != nil {
			return fail(err)
		}
		if !ok {
			break
		}

		if w == nil {
			id := len(chunks)
			cur = Chunk{ID: id, Path: filepath.Join(outDir, FileName(id, RawExt))}
			if w, err = opener.OpenWriter(cur.Path); err != nil {
				return fail(err)
			}
		}

		if err := w.WriteLine(line); err != nil {
			return fail(err)
		}
		cur.Records++
		cur.Fingerprint.Add(line)
		s.Stats.RecordLine(len(line) + 1)

		if w.Written() >= s.ChunkBytes {
			if err := closeChunk(); err != nil {
				return fail(err)
			}
		}
	}

	if w != nil {
		if err := closeChunk(); err != nil {
			return fail(err)
		}
	}

	log.Info("split finished",
		zap.String("input", input),
		zap.Int("chunks", len(chunks)),
		zap.Duration("took", time.Since(start)))
	return chunks, nil
}

func (s *Splitter) opener() linefile.Opener {
	if s.Opener == nil {
		return linefile.Disk{}
	}
	return s.Opener
}
