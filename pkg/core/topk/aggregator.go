// Package topk counts runs of equal records in a globally sorted stream and
// keeps the K most frequent ones in a bounded heap.
package topk

import (
	"sort"

	"wordfreq/pkg/common"
	"wordfreq/pkg/core/structure"
)

// The heap grows with the entries actually held; only this many slots are
// reserved up front.
const maxPrealloc = 1024

// Aggregator consumes a sorted stream record by record. It holds the current
// run plus at most K finished runs.
//
// Ranking is by count descending, then by record order ascending. Once the
// heap is full a finished run replaces the weakest entry only if it ranks
// strictly higher, so a run tying the weakest entry on count is admitted only
// when its record orders first.
type Aggregator struct {
	k    int
	cmp  common.Compare
	heap *structure.PriorityQueue[common.WordCount]

	cur     string
	count   int64
	started bool
	runs    int64
	done    bool
}

// New returns an aggregator for the k most frequent records. k <= 0 yields an
// empty result.
func New(k int, cmp common.Compare) *Aggregator {
	if cmp == nil {
		cmp = common.Lexical
	}
	if k < 0 {
		k = 0
	}
	a := &Aggregator{k: k, cmp: cmp}
	// the heap minimum is the weakest ranked entry
	a.heap = structure.NewPriorityQueueCap(func(x, y common.WordCount) int {
		return -a.rank(x, y)
	}, min(k, maxPrealloc))
	return a
}

// rank is negative when x ranks above y.
func (a *Aggregator) rank(x, y common.WordCount) int {
	switch {
	case x.Count > y.Count:
		return -1
	case x.Count < y.Count:
		return 1
	}
	return a.cmp(x.Word, y.Word)
}

// Add feeds the next record of the sorted stream.
func (a *Aggregator) Add(rec string) {
	if a.started && a.cmp(rec, a.cur) == 0 {
		a.count++
		return
	}
	a.finishRun()
	a.cur = rec
	a.count = 1
	a.started = true
}

func (a *Aggregator) finishRun() {
	if !a.started {
		return
	}
	a.runs++
	a.offer(common.WordCount{Word: a.cur, Count: a.count})
}

func (a *Aggregator) offer(wc common.WordCount) {
	if a.k == 0 {
		return
	}
	if a.heap.Len() < a.k {
		a.heap.Push(wc)
		return
	}
	weakest, _ := a.heap.PeekMin()
	if a.rank(wc, weakest) < 0 {
		a.heap.ReplaceMin(wc)
	}
}

// Finish closes the last run and returns the top entries, highest count
// first. Further calls return an empty slice.
func (a *Aggregator) Finish() []common.WordCount {
	if a.done {
		return []common.WordCount{}
	}
	a.done = true
	a.finishRun()
	a.started = false

	out := a.heap.Drain()
	sort.SliceStable(out, func(i, j int) bool { return a.rank(out[i], out[j]) < 0 })
	return out
}

// Runs is the number of distinct records finalized so far.
func (a *Aggregator) Runs() int64 { return a.runs }
