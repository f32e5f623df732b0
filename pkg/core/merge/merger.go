// Package merge streams N sorted chunk files as one globally sorted sequence
// using a heap with one entry per open chunk.
package merge

import (
	"cmp"
	"context"
	"time"

	"go.uber.org/zap"

	"wordfreq/pkg/common"
	"wordfreq/pkg/core/structure"
	"wordfreq/pkg/logging"
	"wordfreq/pkg/monitor"
	"wordfreq/pkg/storage/linefile"
)

const cancelCheckInterval = 4096

// Merger performs the k-way merge. Memory use is O(number of chunks).
type Merger struct {
	Opener  linefile.Opener
	Compare common.Compare
	// VerifyOrder reports a chunk that is not non-decreasing as corrupt.
	VerifyOrder bool
	Stats       *monitor.PipelineStats
	Log         *zap.Logger
}

// Result summarises one merge.
type Result struct {
	Chunks      int
	Records     int64
	Fingerprint structure.Fingerprint
}

type entry struct {
	rec   string
	chunk int
	it    *Iterator
}

// Merge emits every record of the chunks at paths in global order. Equal
// records are all emitted, the one from the lower chunk index first. Any
// error, including one returned by emit, stops the merge after every open
// chunk has been closed.
func (m *Merger) Merge(ctx context.Context, paths []string, emit func(rec string) error) (res Result, err error) {
	log := logging.OrNop(m.Log)
	opener := m.opener()
	recCmp := m.Compare
	if recCmp == nil {
		recCmp = common.Lexical
	}
	start := time.Now()

	iters := make([]*Iterator, 0, len(paths))
	defer func() {
		for _, it := range iters {
			it.Close()
		}
	}()

	pq := structure.NewPriorityQueueCap(func(a, b entry) int {
		if c := recCmp(a.rec, b.rec); c != 0 {
			return c
		}
		return cmp.Compare(a.chunk, b.chunk)
	}, len(paths))

	for id, p := range paths {
		it, err := OpenIterator(opener, p, recCmp, m.VerifyOrder)
		if err != nil {
			return Result{}, err
		}
		iters = append(iters, it)
		if it.Valid() {
			pq.Push(entry{rec: it.Head(), chunk: id, it: it})
		}
	}
	res.Chunks = len(paths)

	for n := 0; !pq.IsEmpty(); n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}

		e, _ := pq.PeekMin()
		if err := emit(e.rec); err != nil {
			return Result{}, err
		}
		res.Records++
		res.Fingerprint.Add(e.rec)
		m.Stats.RecordMerged()

		more, err := e.it.Next()
		if err != nil {
			return Result{}, err
		}
		if more {
			pq.ReplaceMin(entry{rec: e.it.Head(), chunk: e.chunk, it: e.it})
		} else {
			pq.PopMin()
		}
	}

	log.Info("merge finished",
		zap.Int("chunks", res.Chunks),
		zap.Int64("records", res.Records),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

// MergeToFile writes the merged stream to out, one record per line.
func (m *Merger) MergeToFile(ctx context.Context, paths []string, out string) (res Result, err error) {
	w, err := m.opener().OpenWriter(out)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := w.Close(); err == nil && cerr != nil {
			res, err = Result{}, cerr
		}
	}()
	return m.Merge(ctx, paths, w.WriteLine)
}

func (m *Merger) opener() linefile.Opener {
	if m.Opener == nil {
		return linefile.Disk{}
	}
	return m.Opener
}
