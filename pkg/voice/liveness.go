/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Heartbeat / Liveness - 心跳与 Owner 存活判定
 *
 * Owner 端：成为 Owner 后立即发一次心跳，之后固定间隔发送，
 * 进程存活期间不停止。
 * Follower 端：记录最近一次 heartbeat/state 的来源和时间戳，
 * 在需要依赖 Owner 时惰性计算 ownerAvailable，不单独起轮询。
 */
package voice

import (
	"sync"
	"time"

	"github.com/maiguangyang/voice_core/pkg/bus"
)

const (
	// DefaultHeartbeatInterval is how often the owner announces liveness
	DefaultHeartbeatInterval = 1500 * time.Millisecond
	// DefaultStalenessThreshold is how long a follower trusts the last
	// heartbeat before treating the owner as gone
	DefaultStalenessThreshold = 5 * time.Second
)

// Heartbeater is the owner-side liveness beacon
type Heartbeater struct {
	mu         sync.Mutex
	bus        bus.Bus
	instanceID string
	interval   time.Duration
	onBeat     func()
	stopCh     chan struct{}
	started    bool
	closed     bool
}

// NewHeartbeater creates a beacon. A non-positive interval falls back
// to the default.
func NewHeartbeater(b bus.Bus, instanceID string, interval time.Duration) *Heartbeater {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Heartbeater{
		bus:        b,
		instanceID: instanceID,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start emits one heartbeat immediately, then one per interval
func (h *Heartbeater) Start() {
	h.mu.Lock()
	if h.started || h.closed {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	h.beat()
	go h.runLoop()
}

// SetOnBeat registers a hook invoked after every beacon. 必须在 Start 之前调用
func (h *Heartbeater) SetOnBeat(fn func()) {
	h.mu.Lock()
	h.onBeat = fn
	h.mu.Unlock()
}

func (h *Heartbeater) beat() {
	h.bus.Publish(bus.NewHeartbeat(h.instanceID))

	h.mu.Lock()
	fn := h.onBeat
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (h *Heartbeater) runLoop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.beat()
		}
	}
}

// Stop halts the beacon. Only the process exiting or the store closing
// calls this; a live owner never stops announcing.
func (h *Heartbeater) Stop() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	close(h.stopCh)
}

// OwnerTracker is the follower-side view of owner liveness
type OwnerTracker struct {
	mu        sync.Mutex
	ownerID   string
	lastSeen  time.Time
	threshold time.Duration

	// now is swappable for tests
	now func() time.Time
}

// NewOwnerTracker creates a tracker. A non-positive threshold falls
// back to the default.
func NewOwnerTracker(threshold time.Duration) *OwnerTracker {
	if threshold <= 0 {
		threshold = DefaultStalenessThreshold
	}
	return &OwnerTracker{
		threshold: threshold,
		now:       time.Now,
	}
}

// Observe records a sighting of the owner from a heartbeat or state
// message envelope
func (t *OwnerTracker) Observe(instanceID string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ownerID = instanceID
	if at.After(t.lastSeen) {
		t.lastSeen = at
	}
}

// Available reports whether the owner was seen within the staleness
// threshold. Recomputed on every call; there is no background poller.
func (t *OwnerTracker) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastSeen.IsZero() {
		return false
	}
	return t.now().Sub(t.lastSeen) <= t.threshold
}

// Owner returns the last seen owner instance id and sighting time
func (t *OwnerTracker) Owner() (string, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ownerID, t.lastSeen
}
