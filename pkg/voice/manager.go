/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Manager - 真实媒体连接生命周期管理（仅 Owner 进程持有）
 *
 * 状态机：
 *   disconnected --connect--> connecting --成功--> connected
 *   connected --意外掉线--> reconnecting --退避重试--> connecting
 *   任意状态 --显式 disconnect--> disconnected
 *
 * desired channel 为空表示用户已显式挂断，重连调度随之停止；
 * 这是唯一能持久终止重连的路径。
 */
package voice

import (
	"context"
	"fmt"
	"sync"

	"github.com/maiguangyang/voice_core/pkg/media"
	"github.com/maiguangyang/voice_core/pkg/session"
	"github.com/maiguangyang/voice_core/pkg/utils"
)

// ManagerConfig wires the manager to its collaborators
type ManagerConfig struct {
	// ServerURL is the media service endpoint, injected by the shell
	ServerURL string
	// Identity is the local user's stable id
	Identity string
	// Credentials acquires a connection credential per channel
	Credentials media.CredentialProvider
	// NewSession builds the media session; called once at construction
	// so the manager can hook its own event handlers
	NewSession func(events media.Events) media.Session
	// Prefs is the shared device preference storage
	Prefs session.PreferenceStore
	// Reconnect tunes the backoff curve; zero value uses defaults
	Reconnect ReconnectConfig
}

// Manager owns the real media session and its lifecycle state machine
type Manager struct {
	mu sync.Mutex

	cfg    ManagerConfig
	sess   media.Session
	sched  *ReconnectScheduler
	logger *utils.Logger

	state   session.Snapshot
	desired *session.Channel

	// connectSeq invalidates in-flight connect attempts superseded by
	// a newer connect or an explicit disconnect
	connectSeq uint64

	onChange func()
}

// NewManager creates the owner-side connection manager
func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: utils.NewLogger("voice.manager"),
		state:  session.EmptySnapshot(),
	}

	if cfg.Prefs != nil {
		if prefs, err := cfg.Prefs.Load(); err == nil {
			m.state.Devices = prefs
		} else {
			m.logger.Warn("load device preferences: %v", err)
		}
	}

	m.sess = cfg.NewSession(media.Events{
		OnParticipantChanged: m.handleParticipants,
		OnDisconnected:       m.handleDrop,
	})
	m.sched = NewReconnectScheduler(cfg.Reconnect, m.retry)
	return m
}

// SetOnChange installs the hook invoked after every state mutation.
// The store uses it to drive throttled snapshot publication.
func (m *Manager) SetOnChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *Manager) emitChange() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Snapshot returns a copy of the current state
func (m *Manager) Snapshot() session.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Connect starts a call to the channel. A no-op when already connected
// or connecting to the same channel.
func (m *Manager) Connect(channel session.Channel) {
	m.mu.Lock()
	if m.desired != nil && m.desired.ID == channel.ID &&
		(m.state.Phase == session.PhaseConnected || m.state.Phase.Busy()) {
		m.mu.Unlock()
		return
	}

	// 切换目标：先撤掉旧会话和挂起的重连
	m.sched.Reset()
	if m.state.Phase != session.PhaseDisconnected {
		m.sess.Disconnect()
	}

	ch := channel
	m.desired = &ch
	m.connectSeq++
	seq := m.connectSeq
	m.state.Phase = session.PhaseConnecting
	m.state.Channel = &ch
	m.state.Error = ""
	m.state.Participants = nil
	m.state.Local = nil
	m.mu.Unlock()

	m.emitChange()
	go m.establish(ch, seq, false)
}

// retry is invoked by the reconnect scheduler
func (m *Manager) retry() {
	m.mu.Lock()
	if m.desired == nil {
		m.mu.Unlock()
		return
	}
	ch := *m.desired
	m.connectSeq++
	seq := m.connectSeq
	m.state.Phase = session.PhaseConnecting
	m.mu.Unlock()

	m.emitChange()
	m.establish(ch, seq, true)
}

// establish acquires a credential and brings the session up. It runs
// off the caller's goroutine; seq guards against supersession.
func (m *Manager) establish(channel session.Channel, seq uint64, isRetry bool) {
	ctx := context.Background()

	token, err := m.cfg.Credentials.Credential(ctx, channel.ID, m.cfg.Identity)
	if err != nil {
		m.handleConnectFailure(channel, seq, fmt.Errorf("credential: %w", err))
		return
	}

	if err := m.sess.Connect(ctx, m.cfg.ServerURL, token); err != nil {
		m.handleConnectFailure(channel, seq, err)
		return
	}

	m.mu.Lock()
	if seq != m.connectSeq || m.desired == nil || m.desired.ID != channel.ID {
		// 连接期间目标已变更，放弃这次结果
		m.mu.Unlock()
		m.sess.Disconnect()
		return
	}
	m.state.Phase = session.PhaseConnected
	m.state.Error = ""
	muted := m.state.IsMuted
	deafened := m.state.IsDeafened
	devices := m.state.Devices
	m.mu.Unlock()

	m.sched.Reset()

	// 上线即开启本地音频输入，再套用既有的静音/禁听状态和设备偏好
	if err := m.sess.SetMicEnabled(!muted); err != nil {
		m.logger.Warn("enable microphone: %v", err)
	}
	if deafened {
		if err := m.sess.SetPlaybackMuted(true); err != nil {
			m.logger.Warn("apply deafen: %v", err)
		}
	}
	m.applyDevices(devices)

	if isRetry {
		m.logger.Info("reconnected to channel %s", channel.ID)
	} else {
		m.logger.Info("connected to channel %s", channel.ID)
	}
	m.emitChange()
}

// handleConnectFailure routes a failed attempt to the reconnect
// scheduler while the channel is still desired, otherwise surfaces it
func (m *Manager) handleConnectFailure(channel session.Channel, seq uint64, err error) {
	m.mu.Lock()
	if seq != m.connectSeq {
		m.mu.Unlock()
		return
	}

	if m.desired != nil && m.desired.ID == channel.ID {
		m.state.Phase = session.PhaseReconnecting
		m.state.Error = err.Error()
		m.mu.Unlock()

		m.logger.Warn("connect to %s failed, scheduling retry: %v", channel.ID, err)
		m.emitChange()
		m.sched.Schedule()
		return
	}

	m.state.Phase = session.PhaseDisconnected
	m.state.Error = err.Error()
	m.mu.Unlock()

	m.logger.Error("connect to %s failed: %v", channel.ID, err)
	m.emitChange()
}

// handleDrop reacts to the session dropping without a local disconnect
func (m *Manager) handleDrop(reason string) {
	m.mu.Lock()
	if m.desired == nil {
		m.mu.Unlock()
		return
	}
	m.state.Phase = session.PhaseReconnecting
	m.state.Error = reason
	m.state.Participants = nil
	m.state.Local = nil
	m.mu.Unlock()

	m.logger.Warn("session dropped: %s", reason)
	m.emitChange()
	m.sched.Schedule()
}

// Disconnect ends the call and durably stops reconnection
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.desired = nil
	m.connectSeq++
	devices := m.state.Devices
	m.state = session.EmptySnapshot()
	m.state.Devices = devices
	m.mu.Unlock()

	m.sched.Reset()
	m.sess.Disconnect()

	m.logger.Info("disconnected")
	m.emitChange()
}

// ToggleMute flips the local microphone
func (m *Manager) ToggleMute() {
	m.mu.Lock()
	m.state.IsMuted = !m.state.IsMuted
	muted := m.state.IsMuted
	connected := m.state.Phase == session.PhaseConnected
	if m.state.Local != nil {
		m.state.Local.IsMuted = muted
	}
	m.mu.Unlock()

	if connected {
		if err := m.sess.SetMicEnabled(!muted); err != nil {
			m.logger.Warn("set microphone: %v", err)
		}
	}
	m.emitChange()
}

// ToggleDeafen flips playback of all remote audio without touching
// the local microphone
func (m *Manager) ToggleDeafen() {
	m.mu.Lock()
	m.state.IsDeafened = !m.state.IsDeafened
	deafened := m.state.IsDeafened
	connected := m.state.Phase == session.PhaseConnected
	m.mu.Unlock()

	if connected {
		if err := m.sess.SetPlaybackMuted(deafened); err != nil {
			m.logger.Warn("set playback: %v", err)
		}
	}
	m.emitChange()
}

// ToggleCamera flips the camera. A device or permission failure leaves
// the toggle unapplied and surfaces a scoped error.
func (m *Manager) ToggleCamera() {
	m.mu.Lock()
	target := !m.state.IsCameraOn
	connected := m.state.Phase == session.PhaseConnected
	m.mu.Unlock()

	if connected {
		if err := m.sess.SetCameraEnabled(target); err != nil {
			m.setScopedError(fmt.Sprintf("camera: %v", err))
			return
		}
	}

	m.mu.Lock()
	m.state.IsCameraOn = target
	if m.state.Local != nil {
		m.state.Local.IsCameraOn = target
	}
	m.mu.Unlock()
	m.emitChange()
}

// ToggleScreenShare flips screen sharing with the same failure scoping
// as the camera
func (m *Manager) ToggleScreenShare() {
	m.mu.Lock()
	target := !m.state.IsScreenSharing
	connected := m.state.Phase == session.PhaseConnected
	m.mu.Unlock()

	if connected {
		if err := m.sess.SetScreenShareEnabled(target); err != nil {
			m.setScopedError(fmt.Sprintf("screen share: %v", err))
			return
		}
	}

	m.mu.Lock()
	m.state.IsScreenSharing = target
	if m.state.Local != nil {
		m.state.Local.IsScreenSharing = target
	}
	m.mu.Unlock()
	m.emitChange()
}

// SetAudioDevices persists the preference and switches the live
// session. One device failing to switch does not block the other and
// does not fail the call.
func (m *Manager) SetAudioDevices(prefs session.DevicePreferences) {
	if m.cfg.Prefs != nil {
		if err := m.cfg.Prefs.Save(prefs); err != nil {
			m.logger.Warn("save device preferences: %v", err)
		}
	}

	m.mu.Lock()
	m.state.Devices = prefs
	connected := m.state.Phase == session.PhaseConnected
	m.mu.Unlock()

	if connected {
		m.applyDevices(prefs)
	}
	m.emitChange()
}

// applyDevices attempts both switches independently
func (m *Manager) applyDevices(prefs session.DevicePreferences) {
	if prefs.InputDeviceID != "" {
		if err := m.sess.SwitchInputDevice(prefs.InputDeviceID); err != nil {
			m.logger.Warn("switch input device: %v", err)
		}
	}
	if prefs.OutputDeviceID != "" {
		if err := m.sess.SwitchOutputDevice(prefs.OutputDeviceID); err != nil {
			m.logger.Warn("switch output device: %v", err)
		}
	}
}

// handleParticipants replaces the roster from session events
func (m *Manager) handleParticipants(roster []session.Participant) {
	m.mu.Lock()
	if m.state.Phase != session.PhaseConnected && m.state.Phase != session.PhaseConnecting {
		m.mu.Unlock()
		return
	}
	m.state.Participants = roster
	m.state.Local = nil
	for i := range roster {
		if roster[i].IsLocal {
			local := roster[i]
			m.state.Local = &local
			break
		}
	}
	m.mu.Unlock()
	m.emitChange()
}

func (m *Manager) setScopedError(msg string) {
	m.mu.Lock()
	m.state.Error = msg
	m.mu.Unlock()
	m.logger.Warn("%s", msg)
	m.emitChange()
}

// Scheduler exposes the reconnect scheduler for the store and tests
func (m *Manager) Scheduler() *ReconnectScheduler {
	return m.sched
}

// ManagerStatus is the JSON summary of the connection lifecycle
type ManagerStatus struct {
	Phase            string `json:"phase"`
	Channel          string `json:"channel,omitempty"`
	Error            string `json:"error,omitempty"`
	Participants     int    `json:"participants"`
	ReconnectAttempt int    `json:"reconnect_attempt"`
	ReconnectPending bool   `json:"reconnect_pending"`
}

// GetStatus returns the manager summary
func (m *Manager) GetStatus() ManagerStatus {
	m.mu.Lock()
	status := ManagerStatus{
		Phase:        string(m.state.Phase),
		Error:        m.state.Error,
		Participants: len(m.state.Participants),
	}
	if m.state.Channel != nil {
		status.Channel = m.state.Channel.ID
	}
	m.mu.Unlock()

	status.ReconnectAttempt = m.sched.Attempt()
	status.ReconnectPending = m.sched.Pending()
	return status
}

// Close tears the manager down
func (m *Manager) Close() {
	m.mu.Lock()
	m.desired = nil
	m.connectSeq++
	m.mu.Unlock()

	m.sched.Reset()
	m.sess.Disconnect()
}
