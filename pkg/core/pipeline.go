package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"wordfreq/pkg/common"
	"wordfreq/pkg/config"
	"wordfreq/pkg/core/chunk"
	"wordfreq/pkg/core/merge"
	"wordfreq/pkg/core/structure"
	"wordfreq/pkg/core/topk"
	"wordfreq/pkg/logging"
	"wordfreq/pkg/monitor"
	"wordfreq/pkg/storage"
	"wordfreq/pkg/storage/linefile"
)

// Pipeline runs split -> sort -> merge -> top-K. Stages run one after another;
// only chunk sorting fans out over workers.
type Pipeline struct {
	conf   *config.Config
	opener linefile.Opener
	log    *zap.Logger
	stats  *monitor.PipelineStats
	store  storage.ResultStore
}

type Option func(*Pipeline)

func WithOpener(o linefile.Opener) Option {
	return func(p *Pipeline) { p.opener = o }
}

// WithStore records every finished top-K computation in store.
func WithStore(s storage.ResultStore) Option {
	return func(p *Pipeline) { p.store = s }
}

func NewPipeline(cfg *config.Config, log *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		conf:   cfg,
		opener: linefile.Disk{},
		log:    logging.OrNop(log),
		stats:  monitor.NewPipelineStats(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Report is the outcome of a top-K computation.
type Report struct {
	RunID   int64
	Chunks  int
	Records int64
	Results []common.WordCount
}

func (p *Pipeline) Stats() monitor.PipelineStats {
	return p.stats.Snapshot()
}

func (p *Pipeline) splitter() *chunk.Splitter {
	return &chunk.Splitter{
		Opener:     p.opener,
		ChunkBytes: p.conf.Pipeline.ChunkBytes,
		Stats:      p.stats,
		Log:        p.log.With(zap.String("stage", "split")),
	}
}

func (p *Pipeline) sorter() *chunk.Sorter {
	return &chunk.Sorter{
		Opener:  p.opener,
		Compare: p.conf.Compare(),
		Stats:   p.stats,
		Log:     p.log.With(zap.String("stage", "sort")),
	}
}

func (p *Pipeline) merger() *merge.Merger {
	return &merge.Merger{
		Opener:      p.opener,
		Compare:     p.conf.Compare(),
		VerifyOrder: p.conf.Verify(),
		Stats:       p.stats,
		Log:         p.log.With(zap.String("stage", "merge")),
	}
}

// Split writes raw chunks of input into dir.
func (p *Pipeline) Split(ctx context.Context, input, dir string) ([]chunk.Chunk, error) {
	return p.splitter().Split(ctx, input, dir)
}

// SortChunks sorts every raw chunk in dir.
func (p *Pipeline) SortChunks(ctx context.Context, dir string) ([]chunk.Chunk, error) {
	return p.sorter().SortDir(ctx, dir, p.conf.Pipeline.SortWorkers)
}

// Merge writes the globally sorted stream of the sorted chunks in dir to out.
func (p *Pipeline) Merge(ctx context.Context, dir, out string) (merge.Result, error) {
	sorted, err := chunk.List(dir, chunk.SortedExt)
	if err != nil {
		return merge.Result{}, err
	}
	return p.merger().MergeToFile(ctx, chunk.Paths(sorted), out)
}

// MergeTopK merges the sorted chunks in dir straight into the aggregator.
func (p *Pipeline) MergeTopK(ctx context.Context, dir string, k int) (Report, error) {
	if k < 0 {
		return Report{}, &common.InvalidConfigError{Field: "k", Reason: "must not be negative"}
	}
	sorted, err := chunk.List(dir, chunk.SortedExt)
	if err != nil {
		return Report{}, err
	}
	report, _, err := p.mergeTopK(ctx, chunk.Paths(sorted), k)
	if err != nil {
		return Report{}, err
	}
	return p.save(dir, k, report)
}

func (p *Pipeline) mergeTopK(ctx context.Context, paths []string, k int) (Report, structure.Fingerprint, error) {
	start := time.Now()
	agg := topk.New(k, p.conf.Compare())
	res, err := p.merger().Merge(ctx, paths, func(rec string) error {
		agg.Add(rec)
		return nil
	})
	if err != nil {
		return Report{}, structure.Fingerprint{}, err
	}
	results := agg.Finish()
	p.stats.RecordRuns(agg.Runs())

	p.log.Info("top-k finished",
		zap.String("stage", "topk"),
		zap.Int("k", k),
		zap.Int64("distinct", agg.Runs()),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)))
	return Report{Chunks: res.Chunks, Records: res.Records, Results: results}, res.Fingerprint, nil
}

// Run executes every stage for input using dir for chunk files. The result is
// all or nothing: any failure returns no report. The chunk files this run
// created are removed afterwards unless storage.keep_chunks is set; other
// files in dir are left alone.
func (p *Pipeline) Run(ctx context.Context, input, dir string, k int) (report Report, err error) {
	if k < 0 {
		return Report{}, &common.InvalidConfigError{Field: "k", Reason: "must not be negative"}
	}
	start := time.Now()
	var raws []chunk.Chunk
	if !p.conf.Storage.KeepChunks {
		defer func() {
			if cerr := removeChunks(raws); cerr != nil && err == nil {
				report, err = Report{}, cerr
			}
		}()
	}

	raws, err = p.Split(ctx, input, dir)
	if err != nil {
		return Report{}, fmt.Errorf("split %s: %w", input, err)
	}
	var want structure.Fingerprint
	for _, c := range raws {
		want.Merge(c.Fingerprint)
	}

	sorted, err := p.sorter().SortAll(ctx, raws, p.conf.Pipeline.SortWorkers)
	if err != nil {
		return Report{}, fmt.Errorf("sort chunks: %w", err)
	}

	report, got, err := p.mergeTopK(ctx, chunk.Paths(sorted), k)
	if err != nil {
		return Report{}, fmt.Errorf("merge: %w", err)
	}
	if !got.Equal(want) {
		return Report{}, &common.CorruptChunkError{
			Path:   dir,
			Reason: "merged records " + strconv.FormatInt(got.Count(), 10) + " do not match input records " + strconv.FormatInt(want.Count(), 10),
		}
	}

	snap := p.stats.Snapshot()
	p.log.Info("pipeline finished",
		zap.String("input", input),
		zap.Uint64("lines", snap.LinesRead),
		zap.Uint64("chunks", snap.ChunksWritten),
		zap.Float64("avg_per_word", p.stats.DistinctRatio()),
		zap.Duration("took", time.Since(start)))
	return p.save(input, k, report)
}

func (p *Pipeline) save(input string, k int, report Report) (Report, error) {
	if p.store == nil {
		return report, nil
	}
	id, err := p.store.SaveRun(storage.Run{
		Input:   input,
		K:       k,
		Chunks:  report.Chunks,
		Records: report.Records,
		Results: report.Results,
	})
	if err != nil {
		return Report{}, fmt.Errorf("save run: %w", err)
	}
	report.RunID = id
	return report, nil
}

// removeChunks deletes the raw files in raws and the sorted files derived
// from them. Files already gone are skipped.
func removeChunks(raws []chunk.Chunk) error {
	for _, c := range raws {
		for _, path := range []string{c.Path, chunk.SortedPath(c.Path)} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return common.WrapIO("remove", path, err)
			}
		}
	}
	return nil
}

// WriteResults stores results as "word\tcount" lines in rank order.
func WriteResults(opener linefile.Opener, path string, results []common.WordCount) error {
	lines := make([]string, len(results))
	for i, wc := range results {
		lines[i] = wc.String()
	}
	return linefile.WriteAll(opener, path, lines)
}
