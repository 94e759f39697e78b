/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Store - 面向 UI 的统一入口（两种角色同一接口形状）
 *
 * Owner 进程：用户操作直接落到 Manager，状态变化经节流后以
 * 快照广播；收到的命令按 messageId 去重后当作本地调用执行。
 * Follower 进程：用户操作在 Owner 可用时先乐观更新本地状态，
 * 再转发命令；收到快照时整体替换本地状态，绝不逐字段合并。
 */
package voice

import (
	"sync"
	"time"

	"github.com/maiguangyang/voice_core/pkg/bus"
	"github.com/maiguangyang/voice_core/pkg/session"
	"github.com/maiguangyang/voice_core/pkg/utils"
)

// StoreConfig wires a store for one window process
type StoreConfig struct {
	// Role is resolved once at process startup and never changes
	Role session.Role
	// InstanceID tags outbound messages; generated when empty
	InstanceID string
	// Bus is the selected transport backend
	Bus bus.Bus
	// Manager is required for the owner role, ignored for followers
	Manager *Manager
	// Prefs lets the follower record device choices for its own UI
	Prefs session.PreferenceStore

	// Zero values fall back to the protocol defaults
	HeartbeatInterval  time.Duration
	StalenessThreshold time.Duration
	SnapshotInterval   time.Duration
	DedupCapacity      int
}

// Store is the role-agnostic session surface exposed to the UI layer
type Store struct {
	mu sync.RWMutex

	role       session.Role
	instanceID string
	b          bus.Bus
	prefs      session.PreferenceStore
	logger     *utils.Logger

	// owner side
	mgr         *Manager
	heartbeater *Heartbeater
	throttle    *SnapshotThrottle
	dedup       *bus.Dedup

	// follower side
	tracker *OwnerTracker
	state   session.Snapshot

	onChange func(snapshot session.Snapshot)

	started bool
	closed  bool
}

// NewStore creates a store for the given role
func NewStore(cfg StoreConfig) *Store {
	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = bus.NewInstanceID()
	}

	s := &Store{
		role:       cfg.Role,
		instanceID: instanceID,
		b:          cfg.Bus,
		prefs:      cfg.Prefs,
		logger:     utils.NewLogger("voice.store." + cfg.Role.String()),
		state:      session.EmptySnapshot(),
	}

	if cfg.Role == session.RoleOwner {
		s.mgr = cfg.Manager
		s.heartbeater = NewHeartbeater(cfg.Bus, instanceID, cfg.HeartbeatInterval)
		s.throttle = NewSnapshotThrottle(cfg.SnapshotInterval, s.publishSnapshot)
		s.dedup = bus.NewDedup(cfg.DedupCapacity)
	} else {
		s.tracker = NewOwnerTracker(cfg.StalenessThreshold)
		if cfg.Prefs != nil {
			if prefs, err := cfg.Prefs.Load(); err == nil {
				s.state.Devices = prefs
			}
		}
	}

	return s
}

// Start subscribes to the bus and, for the owner, begins announcing
func (s *Store) Start() {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.b.Subscribe(s.onMessage)

	if s.role == session.RoleOwner {
		s.mgr.SetOnChange(func() {
			s.throttle.Trigger()
			s.notify()
		})
		// 每次心跳顺带重发快照，后起的 Follower 也能在下个周期内收敛
		s.heartbeater.SetOnBeat(s.throttle.Trigger)
		s.heartbeater.Start()
	}
}

// Role returns the fixed process role
func (s *Store) Role() session.Role {
	return s.role
}

// InstanceID returns the process-unique bus tag
func (s *Store) InstanceID() string {
	return s.instanceID
}

// Snapshot returns the current externally visible state
func (s *Store) Snapshot() session.Snapshot {
	if s.role == session.RoleOwner {
		return s.mgr.Snapshot()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// OwnerAvailable reports whether commands can reach a live owner.
// Always true on the owner itself.
func (s *Store) OwnerAvailable() bool {
	if s.role == session.RoleOwner {
		return true
	}
	return s.tracker.Available()
}

// SetOnChange installs the UI observation hook
func (s *Store) SetOnChange(fn func(snapshot session.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Store) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn(s.Snapshot())
	}
}

// ========================================
// UI operations (identical shape for both roles)
// ========================================

// Connect starts or requests a call to the channel
func (s *Store) Connect(channel session.Channel) error {
	if channel.ID == "" {
		return ErrNoChannel
	}
	if s.role == session.RoleOwner {
		s.mgr.Connect(channel)
		return nil
	}
	ch := channel
	return s.relay(bus.Command{Type: bus.CommandConnect, Channel: &ch}, func(st *session.Snapshot) {
		st.Phase = session.PhaseConnecting
		st.Channel = &ch
		st.Error = ""
	})
}

// Disconnect ends or requests ending the call
func (s *Store) Disconnect() error {
	if s.role == session.RoleOwner {
		s.mgr.Disconnect()
		return nil
	}
	return s.relay(bus.Command{Type: bus.CommandDisconnect}, func(st *session.Snapshot) {
		devices := st.Devices
		*st = session.EmptySnapshot()
		st.Devices = devices
	})
}

// ToggleMute flips the microphone
func (s *Store) ToggleMute() error {
	if s.role == session.RoleOwner {
		s.mgr.ToggleMute()
		return nil
	}
	return s.relay(bus.Command{Type: bus.CommandToggleMute}, func(st *session.Snapshot) {
		st.IsMuted = !st.IsMuted
	})
}

// ToggleDeafen flips remote audio playback
func (s *Store) ToggleDeafen() error {
	if s.role == session.RoleOwner {
		s.mgr.ToggleDeafen()
		return nil
	}
	return s.relay(bus.Command{Type: bus.CommandToggleDeafen}, func(st *session.Snapshot) {
		st.IsDeafened = !st.IsDeafened
	})
}

// ToggleCamera flips the camera
func (s *Store) ToggleCamera() error {
	if s.role == session.RoleOwner {
		s.mgr.ToggleCamera()
		return nil
	}
	return s.relay(bus.Command{Type: bus.CommandToggleCamera}, func(st *session.Snapshot) {
		st.IsCameraOn = !st.IsCameraOn
	})
}

// ToggleScreenShare flips screen sharing
func (s *Store) ToggleScreenShare() error {
	if s.role == session.RoleOwner {
		s.mgr.ToggleScreenShare()
		return nil
	}
	return s.relay(bus.Command{Type: bus.CommandToggleScreenShare}, func(st *session.Snapshot) {
		st.IsScreenSharing = !st.IsScreenSharing
	})
}

// SetAudioDevices records the device choice. The follower persists it
// locally for its own UI and relays it; the owner's snapshot remains
// the source of truth for what is actually in effect.
func (s *Store) SetAudioDevices(prefs session.DevicePreferences) error {
	if s.role == session.RoleOwner {
		s.mgr.SetAudioDevices(prefs)
		return nil
	}

	if s.prefs != nil {
		if err := s.prefs.Save(prefs); err != nil {
			s.logger.Warn("save device preferences: %v", err)
		}
	}
	p := prefs
	return s.relay(bus.Command{Type: bus.CommandSetDevices, DevicePreferences: &p}, func(st *session.Snapshot) {
		st.Devices = prefs
	})
}

// relay gates on owner availability, applies the optimistic local
// update, then forwards the command. While the owner is stale no bus
// write happens at all.
func (s *Store) relay(cmd bus.Command, optimistic func(*session.Snapshot)) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	if !s.tracker.Available() {
		s.mu.Lock()
		s.state.Error = OwnerUnavailableMessage
		s.mu.Unlock()
		s.notify()
		return ErrOwnerUnavailable
	}

	if optimistic != nil {
		s.mu.Lock()
		optimistic(&s.state)
		s.mu.Unlock()
		s.notify()
	}

	s.b.Publish(bus.NewCommand(s.instanceID, cmd))
	return nil
}

// ========================================
// Bus inbound
// ========================================

func (s *Store) onMessage(msg bus.Message) {
	switch s.role {
	case session.RoleOwner:
		if msg.Kind == bus.KindCommand {
			s.handleCommand(msg)
		}
	case session.RoleFollower:
		switch msg.Kind {
		case bus.KindHeartbeat:
			s.tracker.Observe(msg.From, msg.SentAt())
		case bus.KindState:
			s.tracker.Observe(msg.From, msg.SentAt())
			if msg.State != nil {
				s.replaceState(*msg.State)
			}
		}
	}
}

// handleCommand executes a relayed command at most once
func (s *Store) handleCommand(msg bus.Message) {
	if msg.Command == nil {
		return
	}
	if s.dedup.Seen(msg.MessageID) {
		// 至少一次投递带来的重复，丢弃
		return
	}

	cmd := *msg.Command
	switch cmd.Type {
	case bus.CommandConnect:
		if cmd.Channel == nil {
			s.logger.Warn("connect command without channel from %s", msg.From)
			return
		}
		s.mgr.Connect(*cmd.Channel)
	case bus.CommandDisconnect:
		s.mgr.Disconnect()
	case bus.CommandToggleMute:
		s.mgr.ToggleMute()
	case bus.CommandToggleDeafen:
		s.mgr.ToggleDeafen()
	case bus.CommandToggleCamera:
		s.mgr.ToggleCamera()
	case bus.CommandToggleScreenShare:
		s.mgr.ToggleScreenShare()
	case bus.CommandSetDevices:
		if cmd.DevicePreferences == nil {
			return
		}
		s.mgr.SetAudioDevices(*cmd.DevicePreferences)
	default:
		s.logger.Warn("unknown command %q from %s", cmd.Type, msg.From)
	}
}

// replaceState swaps the whole local view. Total replacement keeps the
// follower from ever being a mix of two different owner states; an
// older snapshot overwriting a newer reordered one is an accepted risk
// of the unordered transport.
func (s *Store) replaceState(snapshot session.Snapshot) {
	s.mu.Lock()
	s.state = snapshot
	s.mu.Unlock()
	s.notify()
}

// publishSnapshot is the throttle's fire function; it reads the state
// at fire time so a trailing send carries the latest mutations
func (s *Store) publishSnapshot() {
	s.b.Publish(bus.NewState(s.instanceID, s.mgr.Snapshot()))
}

// ========================================
// Status
// ========================================

// Status is the JSON summary exposed for diagnostics
type Status struct {
	Role           string `json:"role"`
	InstanceID     string `json:"instance_id"`
	Phase          string `json:"phase"`
	Channel        string `json:"channel,omitempty"`
	OwnerAvailable bool   `json:"owner_available"`
	OwnerInstance  string `json:"owner_instance,omitempty"`
}

// GetStatus returns the store summary
func (s *Store) GetStatus() Status {
	snapshot := s.Snapshot()

	status := Status{
		Role:           s.role.String(),
		InstanceID:     s.instanceID,
		Phase:          string(snapshot.Phase),
		OwnerAvailable: s.OwnerAvailable(),
	}
	if snapshot.Channel != nil {
		status.Channel = snapshot.Channel.ID
	}
	if s.tracker != nil {
		status.OwnerInstance, _ = s.tracker.Owner()
	}
	return status
}

// Close stops timers and releases the bus endpoint
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.role == session.RoleOwner {
		s.heartbeater.Stop()
		s.throttle.Stop()
		if s.mgr != nil {
			s.mgr.Close()
		}
	}
	s.b.Close()
}
