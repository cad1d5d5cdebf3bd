// Package main runs a terminal joystick that drives a go2pad server.
package main

import (
	"context"
	"sync"
	"time"
)

// sender posts the latest joystick vector, dropping intermediate ones.
type sender struct {
	post     func(ctx context.Context, v vector) error
	interval time.Duration
	onErr    func(error)

	mu       sync.Mutex
	latest   vector
	have     bool
	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// newSender returns a sender that spaces posts at least interval apart.
func newSender(post func(ctx context.Context, v vector) error, interval time.Duration, onErr func(error)) *sender {
	return &sender{
		post:     post,
		interval: interval,
		onErr:    onErr,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// push replaces the pending vector.
func (s *sender) push(v vector) {
	s.mu.Lock()
	s.latest, s.have = v, true
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run delivers vectors until ctx is done or halt is called.
func (s *sender) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-s.wake:
		}
		s.mu.Lock()
		v, ok := s.latest, s.have
		s.have = false
		s.mu.Unlock()
		if !ok {
			continue
		}

		postCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.post(postCtx, v)
		cancel()
		if err != nil && s.onErr != nil {
			s.onErr(err)
		}

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// halt stops delivery, waits for an in-flight post, then posts the zero
// vector synchronously so the robot stops even if the caller exits next.
func (s *sender) halt(timeout time.Duration) error {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
	case <-time.After(timeout):
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.post(ctx, vector{})
}
