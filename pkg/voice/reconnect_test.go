/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Reconnect Scheduler Tests
 */
package voice

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDelayGrowsMonotonically(t *testing.T) {
	s := NewReconnectScheduler(DefaultReconnectConfig(), func() {})

	prev := time.Duration(0)
	for attempt := 0; attempt <= 10; attempt++ {
		d := s.Delay(attempt)
		if d < prev {
			t.Errorf("Delay shrank at attempt %d: %v < %v", attempt, d, prev)
		}
		prev = d
	}
}

func TestDelayStartsAtBase(t *testing.T) {
	cfg := DefaultReconnectConfig()
	s := NewReconnectScheduler(cfg, func() {})

	if d := s.Delay(0); d != cfg.BaseDelay {
		t.Errorf("Expected %v for first attempt, got %v", cfg.BaseDelay, d)
	}
}

func TestDelayCappedAtMax(t *testing.T) {
	cfg := DefaultReconnectConfig()
	s := NewReconnectScheduler(cfg, func() {})

	for _, attempt := range []int{8, 10, 50, 1000} {
		if d := s.Delay(attempt); d > cfg.MaxDelay {
			t.Errorf("Attempt %d exceeds cap: %v > %v", attempt, d, cfg.MaxDelay)
		}
	}
	if d := s.Delay(100); d != cfg.MaxDelay {
		t.Errorf("Expected clamped delay %v, got %v", cfg.MaxDelay, d)
	}
}

func TestScheduleFiresOnce(t *testing.T) {
	var fires int32
	s := NewReconnectScheduler(ReconnectConfig{
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   time.Second,
		MaxAttempt: 10,
	}, func() {
		atomic.AddInt32(&fires, 1)
	})

	// 已挂起时重复调度是 no-op
	s.Schedule()
	s.Schedule()
	s.Schedule()

	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&fires); n != 1 {
		t.Errorf("Expected one fire, got %d", n)
	}
	if s.Pending() {
		t.Error("Timer should clear after firing")
	}
}

func TestScheduleIncrementsAttempt(t *testing.T) {
	s := NewReconnectScheduler(ReconnectConfig{
		BaseDelay:  time.Hour,
		MaxDelay:   time.Hour,
		MaxAttempt: 3,
	}, func() {})
	defer s.Cancel()

	for i := 0; i < 10; i++ {
		s.Schedule()
		s.Cancel()
	}
	// 计数封顶，退避不再继续增长
	if s.Attempt() != 3 {
		t.Errorf("Expected attempt capped at 3, got %d", s.Attempt())
	}
}

func TestCancelStopsPendingRetry(t *testing.T) {
	var fires int32
	s := NewReconnectScheduler(ReconnectConfig{
		BaseDelay:  20 * time.Millisecond,
		MaxDelay:   time.Second,
		MaxAttempt: 10,
	}, func() {
		atomic.AddInt32(&fires, 1)
	})

	s.Schedule()
	s.Cancel()

	time.Sleep(80 * time.Millisecond)
	if n := atomic.LoadInt32(&fires); n != 0 {
		t.Errorf("Cancelled retry still fired %d times", n)
	}
}

func TestResetZeroesAttempt(t *testing.T) {
	s := NewReconnectScheduler(ReconnectConfig{
		BaseDelay:  time.Hour,
		MaxDelay:   time.Hour,
		MaxAttempt: 10,
	}, func() {})

	s.Schedule()
	s.Cancel()
	s.Schedule()
	s.Reset()

	if s.Pending() {
		t.Error("Reset should cancel the pending timer")
	}
	if s.Attempt() != 0 {
		t.Errorf("Expected attempt 0 after reset, got %d", s.Attempt())
	}
}
