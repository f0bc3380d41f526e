package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// entry is a line to write, or a flush request when ack is set.
type entry struct {
	line []byte
	ack  chan error
}

// lineWriter fans log lines out to every sink from one goroutine. Lines and
// flush requests share the queue, so a flush covers every earlier line.
// Write blocks while the queue is full.
type lineWriter struct {
	mu     sync.RWMutex
	closed bool
	queue  chan entry
	done   chan struct{}
	sinks  []*bufio.Writer

	errMu    sync.Mutex
	firstErr error
}

func newLineWriter(writers []io.Writer, bufSize int) *lineWriter {
	w := &lineWriter{
		queue: make(chan entry, 256),
		done:  make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *lineWriter) run() {
	defer close(w.done)
	for e := range w.queue {
		if e.ack != nil {
			e.ack <- w.flush()
			continue
		}
		for _, sink := range w.sinks {
			if _, err := sink.Write(e.line); err != nil {
				w.record(err)
			}
		}
		// Idle: push buffered lines to the sinks.
		if len(w.queue) == 0 {
			w.record(w.flush())
		}
	}
	w.record(w.flush())
}

// Write queues a copy of p. It returns the first sink error seen so far.
func (w *lineWriter) Write(p []byte) error {
	if err := w.err(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.queue <- entry{line: append([]byte(nil), p...)}
	return nil
}

// Flush returns once every line queued before the call reached the sinks.
func (w *lineWriter) Flush() error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		<-w.done
		return w.err()
	}
	ack := make(chan error, 1)
	w.queue <- entry{ack: ack}
	w.mu.RUnlock()
	return <-ack
}

// Close drains the queue, flushes the sinks and waits for the writer to stop.
func (w *lineWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return w.err()
}

func (w *lineWriter) flush() error {
	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *lineWriter) record(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.firstErr == nil {
		w.firstErr = err
	}
}

func (w *lineWriter) err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.firstErr
}
