package bridge

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by a Conn after Close.
var ErrClosed = errors.New("bridge connection closed")

// Conn carries encoded frames between one client and the host.
type Conn interface {
	Send(ctx context.Context, frame []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// Pipe returns the two ends of an in-process connection.
func Pipe() (Conn, Conn) {
	ab := make(chan []byte, 16)
	ba := make(chan []byte, 16)
	done := make(chan struct{})
	once := &sync.Once{}

	return &pipeEnd{out: ab, in: ba, done: done, once: once},
		&pipeEnd{out: ba, in: ab, done: done, once: once}
}

type pipeEnd struct {
	out  chan<- []byte
	in   <-chan []byte
	done chan struct{}
	once *sync.Once
}

func (p *pipeEnd) Send(ctx context.Context, frame []byte) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}

	select {
	case p.out <- frame:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Recv(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-p.in:
		return frame, nil
	case <-p.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes both ends.
func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
