package memory

import (
	"wordfreq/pkg/common"

	"github.com/google/btree"
)

// Item 是缓冲区中的一条记录；seq 为到达顺序，保证重复记录全部保留且排序稳定
type Item struct {
	Rec string
	seq uint64
}

// ChunkBuffer 在内存中按记录顺序保存一个 chunk 的全部记录
type ChunkBuffer struct {
	tree  *btree.BTreeG[Item]
	seq   uint64
	bytes int
}

func NewChunkBuffer(degree int, cmp common.Compare) *ChunkBuffer {
	less := func(a, b Item) bool {
		if c := cmp(a.Rec, b.Rec); c != 0 {
			return c < 0
		}
		return a.seq < b.seq
	}
	return &ChunkBuffer{
		tree: btree.NewG(degree, less),
	}
}

func (cb *ChunkBuffer) Put(rec string) {
	cb.tree.ReplaceOrInsert(Item{Rec: rec, seq: cb.seq})
	cb.seq++
	cb.bytes += len(rec) + 1
}

// Size 返回记录字节数（含换行符）
func (cb *ChunkBuffer) Size() int {
	return cb.bytes
}

func (cb *ChunkBuffer) Count() int {
	return cb.tree.Len()
}

// Iterator 按顺序遍历，fn 返回 false 时停止
func (cb *ChunkBuffer) Iterator(fn func(rec string) bool) {
	cb.tree.Ascend(func(item Item) bool {
		return fn(item.Rec)
	})
}
