package merge

import (
	"unicode/utf8"

	"wordfreq/pkg/common"
	"wordfreq/pkg/storage/linefile"
)

// Iterator is a lazy cursor over one sorted chunk holding a single record of
// lookahead. It releases its file as soon as the chunk is exhausted.
type Iterator struct {
	path   string
	reader linefile.Reader
	cmp    common.Compare
	verify bool

	head   string
	valid  bool
	line   int64
	closed bool
}

// OpenIterator opens path and loads its first record. An empty chunk yields
// an iterator that is already exhausted and closed.
func OpenIterator(opener linefile.Opener, path string, cmp common.Compare, verify bool) (*Iterator, error) {
	r, err := opener.OpenReader(path)
	if err != nil {
		return nil, err
	}
	it := &Iterator{path: path, reader: r, cmp: cmp, verify: verify}
	if _, err := it.Next(); err != nil {
		it.Close()
		return nil, err
	}
	return it, nil
}

// Head is the current record; only meaningful while Valid.
func (it *Iterator) Head() string { return it.head }

func (it *Iterator) Valid() bool { return it.valid }

// Next advances to the following record and reports whether one exists.
func (it *Iterator) Next() (bool, error) {
	if it.closed {
		it.valid = false
		return false, nil
	}
	line, ok, err := it.reader.ReadLine()
	if err != nil {
		it.valid = false
		return false, err
	}
	if !ok {
		it.valid = false
		return false, it.Close()
	}
	it.line++
	if it.verify && it.valid && it.cmp(line, it.head) < 0 {
		it.valid = false
		return false, &common.CorruptChunkError{
			Path:   it.path,
			Line:   it.line,
			Reason: "record " + quote(line) + " sorts before " + quote(it.head),
		}
	}
	it.head = line
	it.valid = true
	return true, nil
}

// Close is idempotent.
func (it *Iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.reader.Close()
}

func quote(s string) string {
	const limit = 64
	if len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return "\"" + s + "\""
}
