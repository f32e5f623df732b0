// Package linefiletest provides an Opener for exercising failure and
// handle-release paths of code built on linefile.
package linefiletest

import (
	"errors"
	"strings"
	"sync"

	"wordfreq/pkg/common"
	"wordfreq/pkg/storage/linefile"
)

var ErrInjected = errors.New("injected failure")

// Opener wraps another Opener, counts live handles and fails on demand.
type Opener struct {
	Base linefile.Opener

	// FailOpen fails OpenReader/OpenWriter for paths containing the substring.
	FailOpen string
	// FailReadAfter fails reads of matching paths after that many lines.
	FailRead      string
	FailReadAfter int
	// FailWriteAfter fails every writer after that many lines when > 0.
	FailWriteAfter int

	mu   sync.Mutex
	open int
}

func New() *Opener {
	return &Opener{Base: linefile.Disk{}}
}

// Open reports handles that were opened but not yet closed.
func (o *Opener) Open() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.open
}

func (o *Opener) track(delta int) {
	o.mu.Lock()
	o.open += delta
	o.mu.Unlock()
}

func (o *Opener) OpenReader(path string) (linefile.Reader, error) {
	if o.FailOpen != "" && strings.Contains(path, o.FailOpen) {
		return nil, common.WrapIO("open", path, ErrInjected)
	}
	r, err := o.Base.OpenReader(path)
	if err != nil {
		return nil, err
	}
	o.track(1)
	fail := o.FailRead != "" && strings.Contains(path, o.FailRead)
	return &reader{Reader: r, owner: o, path: path, fail: fail, after: o.FailReadAfter}, nil
}

func (o *Opener) OpenWriter(path string) (linefile.Writer, error) {
	if o.FailOpen != "" && strings.Contains(path, o.FailOpen) {
		return nil, common.WrapIO("create", path, ErrInjected)
	}
	w, err := o.Base.OpenWriter(path)
	if err != nil {
		return nil, err
	}
	o.track(1)
	return &writer{Writer: w, owner: o, path: path, after: o.FailWriteAfter}, nil
}

type reader struct {
	linefile.Reader
	owner  *Opener
	path   string
	fail   bool
	after  int
	n      int
	closed bool
}

func (r *reader) ReadLine() (string, bool, error) {
	if r.fail && r.n >= r.after {
		return "", false, common.WrapIO("read", r.path, ErrInjected)
	}
	r.n++
	return r.Reader.ReadLine()
}

func (r *reader) Close() error {
	if !r.closed {
		r.closed = true
		r.owner.track(-1)
	}
	return r.Reader.Close()
}

type writer struct {
	linefile.Writer
	owner  *Opener
	path   string
	after  int
	n      int
	closed bool
}

func (w *writer) WriteLine(line string) error {
	if w.after > 0 && w.n >= w.after {
		return common.WrapIO("write", w.path, ErrInjected)
	}
	w.n++
	return w.Writer.WriteLine(line)
}

func (w *writer) Close() error {
	if !w.closed {
		w.closed = true
		w.owner.track(-1)
	}
	return w.Writer.Close()
}
