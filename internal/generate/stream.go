package generate

import (
	"context"
	"sync"
)

// Stream is a pull-based view of one generation. Nothing runs until the
// first call to Next. A Stream is single use and not safe for concurrent
// use.
type Stream struct {
	d      *Driver
	req    Request
	ctx    context.Context
	cancel context.CancelFunc

	once   sync.Once
	tokens chan string
	cur    string
	res    Result
	err    error
}

// Stream returns an iterator over the text of req's answer. The producer
// blocks until each piece is consumed.
func (d *Driver) Stream(ctx context.Context, req Request) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	return &Stream{d: d, req: req, ctx: ctx, cancel: cancel, tokens: make(chan string)}
}

func (s *Stream) start() {
	go func() {
		defer close(s.tokens)
		defer s.cancel()
		s.res, s.err = s.d.Run(s.ctx, s.req, func(tok string) {
			select {
			case s.tokens <- tok:
			case <-s.ctx.Done():
			}
		})
	}()
}

// Next advances to the next piece of text. It returns false when generation
// has finished or failed; check Err afterwards.
func (s *Stream) Next() bool {
	s.once.Do(s.start)
	tok, ok := <-s.tokens
	if !ok {
		s.cur = ""
		return false
	}
	s.cur = tok
	return true
}

// Token is the piece produced by the last successful Next.
func (s *Stream) Token() string { return s.cur }

// Err is the generation error, valid once Next has returned false.
func (s *Stream) Err() error { return s.err }

// Text is the trimmed full answer, valid once Next has returned false.
func (s *Stream) Text() string { return s.res.Text }

// Result is the full outcome, valid once Next has returned false.
func (s *Stream) Result() Result { return s.res }

// Close stops generation and waits for the producer to exit. It is safe to
// call more than once and before Next.
func (s *Stream) Close() {
	s.cancel()
	started := true
	s.once.Do(func() {
		started = false
		s.err = context.Canceled
		close(s.tokens)
	})
	if started {
		for range s.tokens {
		}
	}
}
