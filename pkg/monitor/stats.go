package monitor

import (
	"sync/atomic"
)

// PipelineStats 统计各阶段处理量，sort worker 会并发更新
type PipelineStats struct {
	LinesRead     uint64
	BytesRead     uint64
	ChunksWritten uint64
	ChunksSorted  uint64
	RecordsMerged uint64
	RunsCounted   uint64
}

func NewPipelineStats() *PipelineStats {
	return &PipelineStats{}
}

func (ps *PipelineStats) RecordLine(n int) {
	if ps == nil {
		return
	}
	atomic.AddUint64(&ps.LinesRead, 1)
	atomic.AddUint64(&ps.BytesRead, uint64(n))
}

func (ps *PipelineStats) RecordChunk() {
	if ps == nil {
		return
	}
	atomic.AddUint64(&ps.ChunksWritten, 1)
}

func (ps *PipelineStats) RecordSorted() {
	if ps == nil {
		return
	}
	atomic.AddUint64(&ps.ChunksSorted, 1)
}

func (ps *PipelineStats) RecordMerged() {
	if ps == nil {
		return
	}
	atomic.AddUint64(&ps.RecordsMerged, 1)
}

func (ps *PipelineStats) RecordRuns(n int64) {
	if ps == nil {
		return
	}
	atomic.AddUint64(&ps.RunsCounted, uint64(n))
}

// Snapshot returns a consistent-enough copy for logging.
func (ps *PipelineStats) Snapshot() PipelineStats {
	if ps == nil {
		return PipelineStats{}
	}
	return PipelineStats{
		LinesRead:     atomic.LoadUint64(&ps.LinesRead),
		BytesRead:     atomic.LoadUint64(&ps.BytesRead),
		ChunksWritten: atomic.LoadUint64(&ps.ChunksWritten),
		ChunksSorted:  atomic.LoadUint64(&ps.ChunksSorted),
		RecordsMerged: atomic.LoadUint64(&ps.RecordsMerged),
		RunsCounted:   atomic.LoadUint64(&ps.RunsCounted),
	}
}

// DistinctRatio 返回平均每个不同词出现的次数
func (ps *PipelineStats) DistinctRatio() float64 {
	if ps == nil {
		return 0.0
	}
	merged := atomic.LoadUint64(&ps.RecordsMerged)
	runs := atomic.LoadUint64(&ps.RunsCounted)

	if runs == 0 {
		return 0.0
	}
	return float64(merged) / float64(runs)
}
