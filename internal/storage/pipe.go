package storage

import (
	"context"
	"errors"
	"io"
	"sync"
)

var errPipeClosed = errors.New("read from closed pipe")

type chunk struct {
	buf []byte
	err error
}

// bufferedPipe moves data from a producer to a consumer through two
// fixed-size buffers: while the consumer drains one, the producer fills the
// other. Each buffer is always in exactly one place (free, being filled,
// full, or being drained), so at most 2*size bytes are held in memory.
type bufferedPipe struct {
	free chan []byte
	full chan chunk
	done chan struct{}

	closeOnce sync.Once

	// consumer side
	cur     []byte
	backing []byte
	err     error
}

func newBufferedPipe(size int) *bufferedPipe {
	p := &bufferedPipe{
		free: make(chan []byte, 2),
		full: make(chan chunk, 2),
		done: make(chan struct{}),
	}
	p.free <- make([]byte, size)
	p.free <- make([]byte, size)
	return p
}

// fill copies src into the pipe until src is exhausted, src fails, ctx is
// done, or the consumer closes the pipe. A read error from src is handed to
// the consumer.
func (p *bufferedPipe) fill(ctx context.Context, src io.Reader) error {
	defer close(p.full)

	for {
		var buf []byte
		select {
		case buf = <-p.free:
		case <-p.done:
			return errPipeClosed
		case <-ctx.Done():
			return ctx.Err()
		}

		n, err := io.ReadFull(src, buf)
		if n > 0 {
			select {
			case p.full <- chunk{buf: buf[:n]}:
			case <-p.done:
				return errPipeClosed
			case <-ctx.Done():
				return ctx.Err()
			}
		} else {
			p.free <- buf
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		default:
			select {
			case p.full <- chunk{err: err}:
			case <-p.done:
			case <-ctx.Done():
			}
			return err
		}
	}
}

// next makes the next filled buffer current, returning the sticky error once
// the pipe is drained.
func (p *bufferedPipe) next() error {
	for len(p.cur) == 0 {
		if p.backing != nil {
			p.free <- p.backing[:cap(p.backing)]
			p.backing = nil
		}
		if p.err != nil {
			return p.err
		}

		select {
		case c, ok := <-p.full:
			switch {
			case !ok:
				p.err = io.EOF
			case c.err != nil:
				p.err = c.err
			default:
				p.cur, p.backing = c.buf, c.buf
			}
		case <-p.done:
			p.err = errPipeClosed
		}
	}
	return nil
}

// Read implements io.Reader for the consumer.
func (p *bufferedPipe) Read(b []byte) (int, error) {
	if err := p.next(); err != nil {
		return 0, err
	}
	n := copy(b, p.cur)
	p.cur = p.cur[n:]
	return n, nil
}

// WriteTo hands each filled buffer to w in a single Write, so io.Copy never
// falls back to w's ReadFrom and its smaller reads.
func (p *bufferedPipe) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for {
		if err := p.next(); err != nil {
			if errors.Is(err, io.EOF) {
				return written, nil
			}
			return written, err
		}
		n, err := w.Write(p.cur)
		written += int64(n)
		p.cur = p.cur[n:]
		if err != nil {
			return written, err
		}
		if len(p.cur) > 0 {
			return written, io.ErrShortWrite
		}
	}
}

// Close releases a producer blocked on the pipe. It does not interrupt a
// producer blocked reading its source.
func (p *bufferedPipe) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}
