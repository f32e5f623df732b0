package topk

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordfreq/pkg/common"
)

func aggregate(k int, stream ...string) []common.WordCount {
	a := New(k, common.Lexical)
	for _, r := range stream {
		a.Add(r)
	}
	return a.Finish()
}

func bruteForce(words []string, k int) []common.WordCount {
	counts := map[string]int64{}
	for _, w := range words {
		counts[w]++
	}
	var all []common.WordCount
	for w, c := range counts {
		all = append(all, common.WordCount{Word: w, Count: c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Word < all[j].Word
	})
	if k < len(all) {
		all = all[:k]
	}
	return all
}

func TestTopKScenario(t *testing.T) {
	got := aggregate(2, "a", "a", "b", "c", "c", "c")
	assert.Equal(t, []common.WordCount{{Word: "c", Count: 3}, {Word: "a", Count: 2}}, got)
}

func TestTopKZeroAndEmpty(t *testing.T) {
	assert.Empty(t, aggregate(0, "a", "b", "b"))
	assert.Empty(t, aggregate(-3, "a"))
	assert.Empty(t, aggregate(5))
}

func TestTopKFewerDistinctThanK(t *testing.T) {
	got := aggregate(10, "x", "y", "y", "z")
	assert.Equal(t, []common.WordCount{
		{Word: "y", Count: 2},
		{Word: "x", Count: 1},
		{Word: "z", Count: 1},
	}, got)
}

func TestTopKTiePolicy(t *testing.T) {
	// b 与堆中最弱的 a 同为 2 次，b 排在 a 之后，不得挤掉 a
	got := aggregate(2, "a", "a", "b", "b", "c", "c", "c")
	assert.Equal(t, []common.WordCount{{Word: "c", Count: 3}, {Word: "a", Count: 2}}, got)

	// 同次数时按比较器顺序靠前者胜出，与输入的先后无关
	reverse := func(x, y string) int { return common.Lexical(y, x) }
	a := New(1, reverse)
	for _, r := range []string{"b", "b", "a", "a"} {
		a.Add(r)
	}
	assert.Equal(t, []common.WordCount{{Word: "b", Count: 2}}, a.Finish())

	// a strictly larger later run replaces the weakest
	got = aggregate(1, "a", "b", "b")
	assert.Equal(t, []common.WordCount{{Word: "b", Count: 2}}, got)
}

func TestTopKMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for trial := 0; trial < 20; trial++ {
		var words []string
		for i := 0; i < 400; i++ {
			words = append(words, fmt.Sprintf("w%d", r.Intn(40)))
		}
		sorted := append([]string(nil), words...)
		sort.Strings(sorted)

		for _, k := range []int{1, 3, 10, 40, 100} {
			a := New(k, common.Lexical)
			for _, w := range sorted {
				a.Add(w)
			}
			got := a.Finish()
			require.Equal(t, bruteForce(words, k), got, "trial %d k=%d", trial, k)
		}
	}
}

func TestFinishIsTerminal(t *testing.T) {
	a := New(3, nil)
	a.Add("q")
	a.Add("q")
	require.Len(t, a.Finish(), 1)
	assert.EqualValues(t, 1, a.Runs())
	assert.Empty(t, a.Finish())
}

func TestTopKNumericCountsEachSpelling(t *testing.T) {
	a := New(5, common.Numeric)
	for _, r := range []string{"+1", "01", "01", "1", "2"} {
		a.Add(r)
	}
	assert.Equal(t, []common.WordCount{
		{Word: "01", Count: 2},
		{Word: "+1", Count: 1},
		{Word: "1", Count: 1},
		{Word: "2", Count: 1},
	}, a.Finish())
}

func TestTopKUnboundedK(t *testing.T) {
	words := []string{"a", "b", "b", "c", "d", "d", "d", "e"}
	sorted := append([]string(nil), words...)
	sort.Strings(sorted)

	a := New(math.MaxInt, common.Lexical)
	for _, w := range sorted {
		a.Add(w)
	}
	got := a.Finish()
	require.Len(t, got, 5)
	assert.Equal(t, bruteForce(words, len(words)), got)
}
