package structure

import "github.com/zeebo/xxh3"

// Fingerprint is an order-independent digest of a multiset of records: the
// wrapping sum of per-record hashes. Two streams holding the same records with
// the same multiplicities produce the same fingerprint whatever their order.
type Fingerprint struct {
	sum   uint64
	count int64
}

func (f *Fingerprint) Add(rec string) {
	f.sum += xxh3.HashString(rec)
	f.count++
}

// Merge folds another fingerprint in, as if its records were added here.
func (f *Fingerprint) Merge(o Fingerprint) {
	f.sum += o.sum
	f.count += o.count
}

func (f Fingerprint) Count() int64 { return f.count }

func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.sum == o.sum && f.count == o.count
}
