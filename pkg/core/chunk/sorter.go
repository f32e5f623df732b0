package chunk

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wordfreq/pkg/common"
	"wordfreq/pkg/core/memory"
	"wordfreq/pkg/core/structure"
	"wordfreq/pkg/logging"
	"wordfreq/pkg/monitor"
	"wordfreq/pkg/storage/linefile"
)

const defaultDegree = 32

// Sorter loads one raw chunk at a time, orders it in memory and rewrites it
// as a .sorted file. Duplicates are kept.
type Sorter struct {
	Opener  linefile.Opener
	Compare common.Compare
	Degree  int
	Stats   *monitor.PipelineStats
	Log     *zap.Logger
}

// Sort turns raw into its sorted chunk and removes the raw file. A chunk whose
// sorted content does not hold the same records it was read with, or that
// differs from what the splitter recorded, is reported as corrupt.
func (s *Sorter) Sort(raw Chunk) (Chunk, error) {
	opener := s.opener()
	cmp := s.Compare
	if cmp == nil {
		cmp = common.Lexical
	}
	degree := s.Degree
	if degree <= 0 {
		degree = defaultDegree
	}

	buf := memory.NewChunkBuffer(degree, cmp)
	var in structure.Fingerprint
	if err := s.load(opener, raw.Path, buf, &in); err != nil {
		return Chunk{}, err
	}
	if raw.Fingerprint.Count() > 0 && !raw.Fingerprint.Equal(in) {
		return Chunk{}, &common.CorruptChunkError{Path: raw.Path, Reason: "content changed since split"}
	}
	if raw.Records > 0 && int64(buf.Count()) != raw.Records {
		return Chunk{}, &common.CorruptChunkError{
			Path:   raw.Path,
			Reason: fmt.Sprintf("read %d records, split wrote %d", buf.Count(), raw.Records),
		}
	}
	if raw.Bytes > 0 && int64(buf.Size()) != raw.Bytes {
		return Chunk{}, &common.CorruptChunkError{
			Path:   raw.Path,
			Reason: fmt.Sprintf("read %d bytes, split wrote %d", buf.Size(), raw.Bytes),
		}
	}
	logging.OrNop(s.Log).Debug("chunk loaded",
		zap.String("path", raw.Path),
		zap.Int("records", buf.Count()),
		zap.Int("bytes", buf.Size()))

	sorted := Chunk{ID: raw.ID, Path: SortedPath(raw.Path)}
	if err := s.store(opener, buf, &sorted); err != nil {
		return Chunk{}, err
	}
	if !sorted.Fingerprint.Equal(in) {
		return Chunk{}, &common.CorruptChunkError{Path: sorted.Path, Reason: "sorted records differ from input"}
	}

	if err := os.Remove(raw.Path); err != nil {
		return Chunk{}, common.WrapIO("remove", raw.Path, err)
	}
	s.Stats.RecordSorted()
	return sorted, nil
}

func (s *Sorter) load(opener linefile.Opener, path string, buf *memory.ChunkBuffer, fp *structure.Fingerprint) error {
	r, err := opener.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		line, ok, err := r.ReadLine()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		buf.Put(line)
		fp.Add(line)
	}
	return r.Close()
}

func (s *Sorter) store(opener linefile.Opener, buf *memory.ChunkBuffer, out *Chunk) error {
	w, err := opener.OpenWriter(out.Path)
	if err != nil {
		return err
	}
	defer w.Close()

	var werr error
	buf.Iterator(func(rec string) bool {
		if werr = w.WriteLine(rec); werr != nil {
			return false
		}
		out.Records++
		out.Fingerprint.Add(rec)
		return true
	})
	if werr != nil {
		return werr
	}
	out.Bytes = w.Written()
	return w.Close()
}

// SortAll sorts chunks on at most workers goroutines. Each worker owns its
// chunk exclusively. The first failure cancels the remaining sorts and is
// returned; no partial result is produced.
func (s *Sorter) SortAll(ctx context.Context, chunks []Chunk, workers int) ([]Chunk, error) {
	if workers <= 0 {
		workers = 1
	}
	log := logging.OrNop(s.Log)
	start := time.Now()

	out := make([]Chunk, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sorted, err := s.Sort(c)
			if err != nil {
				log.Error("chunk sort failed", zap.String("path", c.Path), zap.Error(err))
				return err
			}
			out[i] = sorted
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("sort finished",
		zap.Int("chunks", len(chunks)),
		zap.Int("workers", workers),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

// SortDir sorts every raw chunk found in dir.
func (s *Sorter) SortDir(ctx context.Context, dir string, workers int) ([]Chunk, error) {
	raws, err := List(dir, RawExt)
	if err != nil {
		return nil, err
	}
	return s.SortAll(ctx, raws, workers)
}

func (s *Sorter) opener() linefile.Opener {
	if s.Opener == nil {
		return linefile.Disk{}
	}
	return s.Opener
}
