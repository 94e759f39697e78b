/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * ReconnectScheduler - 断线重连退避调度
 *
 * 指数退避 + 抖动。同一时刻最多一个重连定时器，
 * 已挂起时再调度是 no-op。显式 disconnect 或重连成功取消挂起。
 */
package voice

import (
	"math/rand"
	"sync"
	"time"
)

// ReconnectConfig tunes the backoff curve
type ReconnectConfig struct {
	// BaseDelay is the first retry delay
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth
	MaxDelay time.Duration
	// MaxJitter is added uniformly at random to every delay
	MaxJitter time.Duration
	// MaxAttempt caps the exponent so delays stop growing
	MaxAttempt int
}

// DefaultReconnectConfig returns the default backoff curve
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		BaseDelay:  800 * time.Millisecond,
		MaxDelay:   15 * time.Second,
		MaxJitter:  250 * time.Millisecond,
		MaxAttempt: 10,
	}
}

// ReconnectScheduler owns the single outstanding reconnect timer
type ReconnectScheduler struct {
	mu      sync.Mutex
	config  ReconnectConfig
	fn      func()
	attempt int
	timer   *time.Timer
}

// NewReconnectScheduler creates a scheduler invoking fn on each retry
func NewReconnectScheduler(config ReconnectConfig, fn func()) *ReconnectScheduler {
	if config.BaseDelay <= 0 {
		config = DefaultReconnectConfig()
	}
	return &ReconnectScheduler{
		config: config,
		fn:     fn,
	}
}

// Delay computes the backoff for a given attempt, without jitter
func (s *ReconnectScheduler) Delay(attempt int) time.Duration {
	if attempt > s.config.MaxAttempt {
		attempt = s.config.MaxAttempt
	}
	delay := s.config.BaseDelay << uint(attempt)
	if delay > s.config.MaxDelay || delay <= 0 {
		delay = s.config.MaxDelay
	}
	return delay
}

// Schedule arms the retry timer. A no-op while one is already pending.
func (s *ReconnectScheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		return
	}

	delay := s.Delay(s.attempt)
	if s.config.MaxJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(s.config.MaxJitter)))
	}
	if s.attempt < s.config.MaxAttempt {
		s.attempt++
	}

	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		s.timer = nil
		s.mu.Unlock()
		s.fn()
	})
}

// Cancel stops the pending timer, if any
func (s *ReconnectScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Reset cancels the pending timer and zeroes the attempt counter,
// for a successful reconnect or an explicit disconnect
func (s *ReconnectScheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.attempt = 0
}

// Pending reports whether a retry is scheduled
func (s *ReconnectScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Attempt returns the current attempt counter
func (s *ReconnectScheduler) Attempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}
