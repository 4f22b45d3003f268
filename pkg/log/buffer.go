package log

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// buffer delivers entries to transporters asynchronously. When full, new
// entries are dropped and counted rather than blocking the caller.
type buffer struct {
	entries      chan Entry
	transporters []Transporter
	dropped      atomic.Int64
	closed       atomic.Bool
	done         chan struct{}
	wg           sync.WaitGroup
}

func newBuffer(capacity int, transporters ...Transporter) *buffer {
	b := &buffer{
		entries:      make(chan Entry, capacity),
		transporters: transporters,
		done:         make(chan struct{}),
	}
	b.wg.Add(1)
	go b.worker()
	return b
}

func (b *buffer) send(entry Entry) {
	if b.closed.Load() {
		return
	}
	select {
	case b.entries <- entry:
	default:
		b.dropped.Add(1)
	}
}

// droppedCount returns the number of entries lost to buffer overflow.
func (b *buffer) droppedCount() int64 {
	return b.dropped.Load()
}

// close stops the worker and flushes what remains. Safe to call twice.
func (b *buffer) close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	close(b.done)
	b.wg.Wait()
	for {
		select {
		case entry := <-b.entries:
			b.deliver(entry)
		default:
			return
		}
	}
}

func (b *buffer) worker() {
	defer b.wg.Done()
	for {
		select {
		case entry := <-b.entries:
			b.deliver(entry)
		case <-b.done:
			return
		}
	}
}

func (b *buffer) deliver(entry Entry) {
	for _, t := range b.transporters {
		if err := t.Write(entry); err != nil {
			fmt.Fprintf(os.Stderr, "log transporter %q failed: %v\n", t.Name(), err)
		}
	}
}
